package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"OmniTrade/internal/config"
	"OmniTrade/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name  string
	err   error
	panic bool
	block bool
	calls atomic.Int32
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, title, message string) error {
	f.calls.Add(1)
	if f.panic {
		panic("adapter exploded")
	}
	if f.block {
		select {} // ignores ctx on purpose
	}
	return f.err
}

func newTestDispatcher(timeout time.Duration) *Dispatcher {
	logger, _ := test.NewNullLogger()
	return NewDispatcher(timeout, logger)
}

func TestDispatch_OneFailureIsolated(t *testing.T) {
	a := &fakeChannel{name: "telegram"}
	b := &fakeChannel{name: "discord", err: errors.New("HTTP 404: unknown webhook")}
	c := &fakeChannel{name: "native"}

	outcomes := newTestDispatcher(time.Second).Dispatch(context.Background(), []Channel{a, b, c}, "t", "m")

	require.Len(t, outcomes, 3)
	assert.Equal(t, model.NotificationOutcome{Channel: "telegram", Success: true}, outcomes[0])
	assert.Equal(t, model.NotificationOutcome{Channel: "discord", Error: "HTTP 404: unknown webhook"}, outcomes[1])
	assert.Equal(t, model.NotificationOutcome{Channel: "native", Success: true}, outcomes[2])

	var failures int
	for _, o := range outcomes {
		if !o.Success {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	for _, ch := range []*fakeChannel{a, b, c} {
		assert.EqualValues(t, 1, ch.calls.Load())
	}
}

func TestDispatch_NoChannels(t *testing.T) {
	assert.Empty(t, newTestDispatcher(time.Second).Dispatch(context.Background(), nil, "t", "m"))
}

func TestDispatch_PanicAndHang(t *testing.T) {
	ok := &fakeChannel{name: "ok"}
	boom := &fakeChannel{name: "boom", panic: true}
	hung := &fakeChannel{name: "hung", block: true}

	start := time.Now()
	outcomes := newTestDispatcher(50*time.Millisecond).Dispatch(context.Background(), []Channel{ok, boom, hung}, "t", "m")

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "adapter exploded")
	assert.Equal(t, model.NotificationOutcome{Channel: "hung", Error: "timed out"}, outcomes[2])
	assert.Less(t, time.Since(start), 5*time.Second)
}

type badNameChannel struct{ fakeChannel }

func (*badNameChannel) Name() string { panic("no name") }

func TestDispatch_PanickingNameIsIsolated(t *testing.T) {
	ok := &fakeChannel{name: "ok"}
	bad := &badNameChannel{}

	var outcomes []model.NotificationOutcome
	require.NotPanics(t, func() {
		outcomes = newTestDispatcher(time.Second).Dispatch(context.Background(), []Channel{ok, bad}, "t", "m")
	})

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.Equal(t, "channel-2", outcomes[1].Channel)
	assert.True(t, outcomes[1].Success)
}

func TestChannels_OnlyReady(t *testing.T) {
	n := config.Notifications{
		Telegram: config.TelegramConfig{Enabled: true, BotToken: "tok"},
		Discord:  config.DiscordConfig{Enabled: true, WebhookURL: "https://discord.com/api/webhooks/1/x"},
		Native:   config.NativeConfig{Enabled: true},
	}
	var names []string
	for _, ch := range Channels(n, Options{}) {
		names = append(names, ch.Name())
	}
	assert.Equal(t, []string{"discord", "native"}, names)

	assert.Empty(t, Channels(config.Notifications{}, Options{}))
}

func TestFormatTrigger(t *testing.T) {
	a := &model.PriceAlert{Symbol: "BTC/USDT", Condition: model.ConditionBelow, TargetPrice: decimal.NewFromInt(50000)}
	title, msg := FormatTrigger(a, decimal.RequireFromString("49500"), "binance")

	assert.Equal(t, "OmniTrade Alert: BTC/USDT", title)
	assert.Equal(t, "BTC/USDT is below $50,000.00\nCurrent price: $49,500.00 on binance", msg)
	assert.Equal(t, "$0.00001234", FormatPrice(decimal.RequireFromString("0.00001234")))
}

func TestTelegramNotifier(t *testing.T) {
	var sent map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Omni","username":"omni_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			sent = map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("123:abc", "42", "", time.Second)
	tg.Endpoint = srv.URL + "/bot%s/%s"

	id, err := tg.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "@omni_bot", id)

	require.NoError(t, tg.Send(context.Background(), "OmniTrade Alert: BTC/USDT", "Current price: $49,500.00"))
	assert.Equal(t, "42", sent["chat_id"])
	assert.Equal(t, "MarkdownV2", sent["parse_mode"])
	assert.Equal(t, "🔔 *OmniTrade Alert: BTC/USDT*\n\nCurrent price: $49,500\\.00", sent["text"])

	tg.ChatID = "not-a-number"
	assert.Error(t, tg.Send(context.Background(), "t", "m"))
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"name":"alerts-hook"}`))
		}
	}))
	defer srv.Close()

	wh := NewWebhookNotifier("discord", srv.URL+"/api/webhooks/1/x", "", time.Second)
	wh.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, wh.Send(context.Background(), "Title", "Body"))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "🔔 Title", got.Embeds[0].Title)
	assert.Equal(t, "Body", got.Embeds[0].Description)
	assert.Equal(t, 0x00d4aa, got.Embeds[0].Color)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.Embeds[0].Timestamp)

	id, err := wh.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alerts-hook", id)

	wh.Strict = true
	_, err = wh.Verify(context.Background())
	assert.ErrorContains(t, err, "Discord URL")
}

func TestWebhookNotifier_StrictHost(t *testing.T) {
	for host, want := range map[string]bool{
		"discord.com":        true,
		"ptb.discord.com":    true,
		"discordapp.com":     true,
		"Canary.Discord.com": true,
		"evildiscord.com":    false,
		"notdiscordapp.com":  false,
		"discord.com.evil":   false,
	} {
		assert.Equal(t, want, discordHost(host), host)
	}

	wh := NewWebhookNotifier("discord", "https://evildiscord.com/api/webhooks/1/x", "", time.Second)
	wh.Strict = true
	_, err := wh.Verify(context.Background())
	assert.ErrorContains(t, err, "Discord URL")
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Unknown Webhook"}`))
	}))
	defer srv.Close()

	wh := NewWebhookNotifier("discord", srv.URL, "", time.Second)
	err := wh.Send(context.Background(), "t", "m")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = wh.Verify(context.Background())
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestNativeNotifier_Variants(t *testing.T) {
	var gotName string
	var gotArgs []string
	n := &NativeNotifier{
		Run: func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
		LookPath: func(file string) (string, error) { return "/usr/bin/" + file, nil },
	}

	for platform, tool := range map[string]string{"darwin": "osascript", "linux": "notify-send", "windows": "powershell"} {
		n.Platform = platform
		require.NoError(t, n.Send(context.Background(), `Say "hi"`, "it's up"), platform)
		assert.Equal(t, tool, gotName)
		path, err := n.Verify(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/"+tool, path)
	}
	n.Platform = "darwin"
	require.NoError(t, n.Send(context.Background(), `Say "hi"`, "m"))
	assert.Contains(t, gotArgs[1], `with title "Say \"hi\""`)

	n.Platform = "plan9"
	err := n.Send(context.Background(), "t", "m")
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	_, err = n.Verify(context.Background())
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestNativeNotifier_RunnerFailure(t *testing.T) {
	n := &NativeNotifier{Platform: "linux", Run: func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	}}
	assert.ErrorContains(t, n.Send(context.Background(), "t", "m"), "native notification failed")
}
