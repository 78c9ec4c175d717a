package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"OmniTrade/internal/alerts"
	"OmniTrade/internal/config"
	"OmniTrade/internal/logging"
	"OmniTrade/internal/model"
	"OmniTrade/internal/notifier"
	"OmniTrade/internal/recorder"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

func cmdAlerts(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	switch args[0] {
	case "add":
		return alertsAdd(args[1:])
	case "list", "ls":
		return alertsList(args[1:])
	case "remove", "rm":
		return alertsRemove(args[1:])
	case "history":
		return alertsHistory(args[1:])
	default:
		printUsage()
		return 1
	}
}

// loadOrDefault returns the config, or one rooted at the default home when
// the file does not exist yet.
func loadOrDefault(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotFound) {
		home := config.HomeDir()
		return &config.Config{Home: home, Daemon: config.DaemonConfig{HistoryDB: filepath.Join(home, "history.db")}}, nil
	}
	return cfg, err
}

func alertsAdd(args []string) int {
	var exchange string
	pos, cfgPath, err := parseFlags("alerts add", args, func(fs *flag.FlagSet) {
		fs.StringVar(&exchange, "exchange", "", "only check this exchange")
	})
	if err != nil {
		return 2
	}
	if len(pos) != 3 {
		fmt.Fprintln(os.Stderr, "usage: alerts add SYMBOL above|below PRICE [-exchange NAME]")
		return 2
	}
	target, err := decimal.NewFromString(strings.ReplaceAll(pos[2], ",", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid price %q\n", pos[2])
		return 2
	}
	cfg, err := loadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if exchange != "" && len(cfg.Exchanges) > 0 && !contains(cfg.ExchangeNames(), strings.ToLower(exchange)) {
		fmt.Fprintf(os.Stderr, "warning: exchange %q is not configured; the alert will stay pending\n", exchange)
	}

	a, err := alerts.NewStore(cfg.AlertsFile()).Add(pos[0], model.Condition(strings.ToLower(pos[1])), target, exchange)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("Alert %s created: %s %s %s", a.ID, a.Symbol, a.Condition, notifier.FormatPrice(a.TargetPrice))
	if a.Exchange != "" {
		fmt.Printf(" on %s", a.Exchange)
	}
	fmt.Println()
	return 0
}

func alertsList(args []string) int {
	var all bool
	_, cfgPath, err := parseFlags("alerts list", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&all, "all", false, "include triggered alerts")
	})
	if err != nil {
		return 2
	}
	cfg, err := loadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	doc := alerts.NewStore(cfg.AlertsFile()).LoadAll()
	var shown int
	for _, a := range doc.Alerts {
		if a.Triggered && !all {
			continue
		}
		shown++
		exchange := a.Exchange
		if exchange == "" {
			exchange = "any"
		}
		line := fmt.Sprintf("%s  %-12s %-5s %-14s %-12s created %s",
			a.ID, a.Symbol, a.Condition, notifier.FormatPrice(a.TargetPrice), exchange, humanize.Time(a.CreatedAt.Time))
		if a.Triggered && a.TriggeredAt != nil {
			line += "  TRIGGERED " + formatTime(a.TriggeredAt.Time)
			if a.TriggeredPrice != nil {
				line += " at " + notifier.FormatPrice(*a.TriggeredPrice)
			}
		}
		fmt.Println(line)
	}
	if shown == 0 {
		fmt.Println("No alerts")
	}
	return 0
}

func alertsRemove(args []string) int {
	pos, cfgPath, err := parseFlags("alerts remove", args, nil)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: alerts remove ID")
		return 2
	}
	cfg, err := loadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := alerts.NewStore(cfg.AlertsFile()).Remove(pos[0]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("Alert %s removed\n", pos[0])
	return 0
}

func alertsHistory(args []string) int {
	var limit int
	_, cfgPath, err := parseFlags("alerts history", args, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", 20, "number of triggers to show")
	})
	if err != nil {
		return 2
	}
	cfg, err := loadOrDefault(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !cfg.HistoryEnabled() {
		fmt.Println("Trigger history is disabled (daemon.history_db: off)")
		return 0
	}

	rec, err := recorder.NewSQLiteRecorder(cfg.Daemon.HistoryDB, logging.Discard())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		return 1
	}
	defer rec.Close()

	triggers, err := rec.RecentTriggers(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read history: %v\n", err)
		return 1
	}
	if len(triggers) == 0 {
		fmt.Println("No triggers recorded yet")
		return 0
	}
	for _, t := range triggers {
		fmt.Printf("%s  %-12s %-5s %-14s hit %-14s on %-10s delivered %d, failed %d\n",
			formatTime(t.TriggeredAt), t.Symbol, t.Condition, notifier.FormatPrice(t.TargetPrice),
			notifier.FormatPrice(t.Price), t.Exchange, t.Delivered, t.Failed)
	}
	return 0
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
