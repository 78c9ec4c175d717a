package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

const defaultSendTimeout = 30 * time.Second

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	// Endpoint is the API URL template, tgbotapi.APIEndpoint by default.
	Endpoint string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, timeout time.Duration) *TelegramNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Endpoint: tgbotapi.APIEndpoint,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send posts "🔔 *title*" followed by the message, escaped for MarkdownV2.
func (t *TelegramNotifier) Send(ctx context.Context, title, message string) error {
	text := "🔔 *" + tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, title) + "*\n\n" +
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, message)

	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(t.ChatID, "@") {
		msg = tgbotapi.NewMessageToChannel(t.ChatID, text)
	} else {
		chatID, err := strconv.ParseInt(strings.TrimSpace(t.ChatID), 10, 64)
		if err != nil {
			return errors.Errorf("invalid chat id %q", t.ChatID)
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := t.bot(ctx).Send(msg); err != nil {
		return errors.Wrap(err, "could not send telegram message")
	}
	return nil
}

// Verify calls getMe and returns the bot's username.
func (t *TelegramNotifier) Verify(ctx context.Context) (string, error) {
	me, err := t.bot(ctx).GetMe()
	if err != nil {
		return "", errors.Wrap(err, "invalid bot token")
	}
	if me.UserName == "" {
		return "bot", nil
	}
	return "@" + me.UserName, nil
}

// bot builds a client bound to ctx. tgbotapi.NewBotAPI would issue getMe on
// every construction, so the struct is assembled directly.
func (t *TelegramNotifier) bot(ctx context.Context) *tgbotapi.BotAPI {
	b := &tgbotapi.BotAPI{
		Token:  t.BotToken,
		Client: ctxClient{ctx: ctx, client: t.Client},
		Buffer: 100,
	}
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	b.SetAPIEndpoint(endpoint)
	return b
}

type ctxClient struct {
	ctx    context.Context
	client *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}
