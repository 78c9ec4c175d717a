package notifier

import (
	"context"
	"errors"
	"time"

	"OmniTrade/internal/config"
)

// ErrUnsupportedPlatform is returned by the native channel on hosts without a
// known notification mechanism.
var ErrUnsupportedPlatform = errors.New("native notifications not supported on this platform")

// Channel delivers one notification over a single transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Verifier is implemented by channels that can check their credentials
// without delivering a message. It returns an identity on success.
type Verifier interface {
	Verify(ctx context.Context) (string, error)
}

// Options tunes the transports built by Channels.
type Options struct {
	ProxyURL string
	Timeout  time.Duration
}

// Channels builds the enabled and fully configured channels, in a stable order.
func Channels(n config.Notifications, opts Options) []Channel {
	var out []Channel
	if n.Telegram.Ready() {
		out = append(out, NewTelegramNotifier(n.Telegram.BotToken, n.Telegram.ChatID, opts.ProxyURL, opts.Timeout))
	}
	if n.Discord.Ready() {
		w := NewWebhookNotifier("discord", n.Discord.WebhookURL, opts.ProxyURL, opts.Timeout)
		w.Strict = true
		out = append(out, w)
	}
	if n.Native.Enabled {
		out = append(out, NewNativeNotifier())
	}
	return out
}
