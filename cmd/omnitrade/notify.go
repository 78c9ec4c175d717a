package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"OmniTrade/internal/logging"
	"OmniTrade/internal/notifier"
)

func cmdNotify(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	_, cfgPath, err := parseFlags("notify", args[1:], nil)
	if err != nil {
		return 2
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	channels := notifier.Channels(cfg.Notifications, notifier.Options{ProxyURL: cfg.Proxy, Timeout: cfg.NotifyTimeout()})
	if len(channels) == 0 {
		fmt.Println("No notification channels configured")
		return 1
	}

	switch args[0] {
	case "verify":
		return notifyVerify(channels, cfg.NotifyTimeout())
	case "test":
		logger, closeLog := logging.New("warn", "")
		defer closeLog()
		names := make([]string, len(channels))
		for i, ch := range channels {
			names[i] = ch.Name()
		}
		title, message := notifier.FormatTest(names)
		outcomes := notifier.NewDispatcher(cfg.NotifyTimeout(), logger).Dispatch(context.Background(), channels, title, message)
		failed := 0
		for _, o := range outcomes {
			if o.Success {
				fmt.Printf("  ✓ %s\n", o.Channel)
			} else {
				failed++
				fmt.Printf("  ✗ %s: %s\n", o.Channel, o.Error)
			}
		}
		if failed > 0 {
			return 1
		}
		return 0
	default:
		printUsage()
		return 1
	}
}

func notifyVerify(channels []notifier.Channel, timeout time.Duration) int {
	failed := 0
	for _, ch := range channels {
		v, ok := ch.(notifier.Verifier)
		if !ok {
			fmt.Printf("  - %s: no verification available\n", ch.Name())
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		id, err := v.Verify(ctx)
		cancel()
		if err != nil {
			failed++
			fmt.Printf("  ✗ %s: %v\n", ch.Name(), err)
			continue
		}
		fmt.Printf("  ✓ %s: %s\n", ch.Name(), id)
	}
	if failed > 0 {
		return 1
	}
	return 0
}
