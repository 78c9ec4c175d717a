package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OmniTrade/internal/config"
	"OmniTrade/internal/daemon"
	"OmniTrade/internal/logging"
	"OmniTrade/internal/registry"

	"github.com/dustin/go-humanize"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var code int
	switch cmd {
	case "start":
		code = cmdStart(args)
	case "stop":
		code = cmdStop(args)
	case "status":
		code = cmdStatus(args)
	case "run":
		// Foreground mode, also the detached child's command line.
		code = cmdRun(args)
	case "alerts":
		code = cmdAlerts(args)
	case "notify":
		code = cmdNotify(args)
	case "version":
		fmt.Printf("omnitrade %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		printUsage()
		code = 1
	}
	os.Exit(code)
}

func printUsage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `OmniTrade price alert daemon (%s)

Usage:
  %s <command> [flags]

Commands:
  start                         Start the alert daemon in the background
  stop                          Stop the daemon
  status                        Show daemon status and recent log lines
  run                           Run the daemon in the foreground
  alerts add SYMBOL above|below PRICE [-exchange NAME]
  alerts list [-all]
  alerts remove ID
  alerts history [-limit N]
  notify verify                 Check every configured notification channel
  notify test                   Send a test notification
  version                       Print version

Flags:
  -config PATH   Config file path (default: %s)
`, version, exe, config.DefaultPath())
}

// parseFlags parses the common -config flag plus any extras registered by
// setup. Flags may appear before, between or after positional arguments.
func parseFlags(name string, args []string, setup func(fs *flag.FlagSet)) ([]string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", config.DefaultPath(), "config file path")
	if setup != nil {
		setup(fs)
	}
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, "", err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, *cfgPath, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w\ncreate it first, see the exchanges/notifications/daemon sections", err)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if warn := config.CheckPermissions(cfg.Path); warn != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
	return cfg, nil
}

func newController(cfg *config.Config) *daemon.Controller {
	return daemon.NewController(registry.New(cfg.Home), cfg.Path, cfg.Daemon.LogFile)
}

func cmdStart(args []string) int {
	_, cfgPath, err := parseFlags("start", args, nil)
	if err != nil {
		return 2
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	res, err := newController(cfg).Start()
	if err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Printf("OmniTrade daemon is already running (PID %d)\n", res.PID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
		return 1
	}
	if res.CleanedStale {
		fmt.Println("Removed stale PID file")
	}
	if !res.Ready {
		fmt.Fprintf(os.Stderr, "Daemon (PID %d) did not come up, check %s\n", res.PID, cfg.Daemon.LogFile)
		return 1
	}

	fmt.Printf("OmniTrade daemon started (PID %d)\n", res.PID)
	fmt.Printf("  Exchanges : %s\n", strings.Join(cfg.ExchangeNames(), ", "))
	fmt.Printf("  Interval  : %s\n", cfg.PollInterval())
	fmt.Printf("  Channels  : %s\n", joinOr(cfg.Notifications.EnabledChannels(), "none"))
	fmt.Printf("  Log       : %s\n", cfg.Daemon.LogFile)
	return 0
}

func cmdStop(args []string) int {
	_, cfgPath, err := parseFlags("stop", args, nil)
	if err != nil {
		return 2
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = &config.Config{Home: config.HomeDir()}
	}

	res := newController(cfg).Stop()
	switch res.Outcome {
	case daemon.StopNotRunning:
		fmt.Println("OmniTrade daemon is not running")
		return 1
	case daemon.StopStaleCleaned:
		fmt.Printf("OmniTrade daemon was not running (stale PID %d cleaned up)\n", res.PID)
		return 1
	case daemon.StopKilled:
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "failed to kill PID %d: %v\n", res.PID, res.Err)
			return 1
		}
		fmt.Printf("OmniTrade daemon force-killed (PID %d)\n", res.PID)
	default:
		fmt.Printf("OmniTrade daemon stopped (PID %d)\n", res.PID)
	}
	return 0
}

func cmdStatus(args []string) int {
	_, cfgPath, err := parseFlags("status", args, nil)
	if err != nil {
		return 2
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = &config.Config{Home: config.HomeDir(), Daemon: config.DaemonConfig{LogFile: filepath.Join(config.HomeDir(), "daemon.log")}}
	}

	st := newController(cfg).Status()
	switch st.State {
	case daemon.NotRunning:
		fmt.Println("OmniTrade daemon is not running")
		return 1
	case daemon.Stale:
		fmt.Printf("OmniTrade daemon is not running (stale PID %d cleaned up)\n", st.PID)
		return 1
	}

	fmt.Printf("OmniTrade daemon is running (PID %d)\n", st.PID)
	if !st.StartedAt.IsZero() {
		fmt.Printf("  Uptime  : %s (started %s)\n", registry.FormatUptime(st.Uptime), humanize.Time(st.StartedAt))
	}
	fmt.Printf("  Log     : %s\n", cfg.Daemon.LogFile)
	if len(st.LogTail) > 0 {
		fmt.Println("\nRecent activity:")
		for _, line := range st.LogTail {
			fmt.Printf("  %s\n", line)
		}
	}
	return 0
}

func cmdRun(args []string) int {
	_, cfgPath, err := parseFlags("run", args, nil)
	if err != nil {
		return 2
	}

	// Peek at the config for the log destination; Run loads it again and
	// reports load errors itself.
	level, logFile := os.Getenv("OMNITRADE_LOG_LEVEL"), filepath.Join(config.HomeDir(), "daemon.log")
	if cfg, err := config.Load(cfgPath); err == nil {
		level, logFile = cfg.Daemon.LogLevel, cfg.Daemon.LogFile
	}
	logger, closeLog := logging.New(level, logFile)
	defer closeLog()

	if err := daemon.Run(context.Background(), daemon.RunOptions{ConfigPath: cfgPath, Logger: logger}); err != nil {
		return 1
	}
	return 0
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
