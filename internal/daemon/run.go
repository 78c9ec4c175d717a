package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"OmniTrade/internal/alerts"
	"OmniTrade/internal/collector"
	"OmniTrade/internal/config"
	"OmniTrade/internal/logging"
	"OmniTrade/internal/metrics"
	"OmniTrade/internal/notifier"
	"OmniTrade/internal/recorder"
	"OmniTrade/internal/registry"
	"OmniTrade/internal/scheduler"

	log "github.com/sirupsen/logrus"
)

// ErrNoExchanges is returned by Run when no configured exchange could be initialised.
var ErrNoExchanges = errors.New("no exchanges could be initialized")

// RunOptions configures the daemon entry point.
type RunOptions struct {
	ConfigPath string
	Logger     *log.Logger
	// NewCollector builds the exchange set, collector.FromConfig by default.
	NewCollector func(*config.Config, log.FieldLogger) *collector.Collector
	// Signals overrides the OS shutdown signals.
	Signals <-chan os.Signal
}

// Run is the body of the detached daemon. It registers the process, polls
// until a shutdown signal or ctx cancellation, then removes the registration.
// An in-flight tick is not waited for.
func Run(ctx context.Context, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	reg := registry.New(config.HomeDir())

	pid := os.Getpid()
	if err := reg.Write(pid, time.Now()); err != nil {
		logger.WithError(err).Error("FATAL: Failed to write process registry")
		reg.Remove()
		return err
	}
	defer reg.Remove()
	logger.Infof("OmniTrade daemon started (PID: %d)", pid)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Errorf("FATAL: Failed to load config: %v", err)
		return err
	}
	logger.SetLevel(logging.ParseLevel(cfg.Daemon.LogLevel))
	logger.Infof("Config loaded — exchanges: %s", strings.Join(cfg.ExchangeNames(), ", "))
	if warn := config.CheckPermissions(cfg.Path); warn != "" {
		logger.Warn(warn)
	}

	newCollector := opts.NewCollector
	if newCollector == nil {
		newCollector = collector.FromConfig
	}
	col := newCollector(cfg, logger)
	if col.Len() == 0 {
		logger.Error("FATAL: No exchanges could be initialized")
		return ErrNoExchanges
	}

	channels := notifier.Channels(cfg.Notifications, notifier.Options{ProxyURL: cfg.Proxy, Timeout: cfg.NotifyTimeout()})
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name()
	}
	if len(names) == 0 {
		names = []string{"none"}
	}
	logger.Infof("Notification channels: %s", strings.Join(names, ", "))

	rec := openHistory(cfg, logger)
	defer rec.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	if cfg.Daemon.MetricsAddr != "" {
		go func() {
			if err := m.Serve(runCtx, cfg.Daemon.MetricsAddr, logger); err != nil {
				logger.WithError(err).Warn("Metrics endpoint stopped")
			}
		}()
	}

	sched := scheduler.NewScheduler(runCtx, scheduler.Deps{
		Store:      alerts.NewStore(cfg.AlertsFile()),
		Collector:  col,
		Channels:   channels,
		Dispatcher: notifier.NewDispatcher(cfg.NotifyTimeout(), logger),
		Recorder:   rec,
		Metrics:    m,
		Logger:     logger,
		Interval:   cfg.PollInterval(),
	})
	sched.Start()
	defer sched.Stop()

	sigs := opts.Signals
	if sigs == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, shutdownSignals...)
		defer signal.Stop(ch)
		sigs = ch
	}

	select {
	case sig := <-sigs:
		logger.Infof("Received %s — shutting down gracefully", sig)
	case <-ctx.Done():
		logger.Infof("Shutting down: %v", ctx.Err())
	}
	return nil
}

func openHistory(cfg *config.Config, logger log.FieldLogger) recorder.Recorder {
	if !cfg.HistoryEnabled() {
		return recorder.NewNoopRecorder()
	}
	r, err := recorder.NewSQLiteRecorder(cfg.Daemon.HistoryDB, logger)
	if err != nil {
		logger.WithError(err).Warn(fmt.Sprintf("Trigger history disabled: cannot open %s", cfg.Daemon.HistoryDB))
		return recorder.NewNoopRecorder()
	}
	return r
}
