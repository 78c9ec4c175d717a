package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	embedColor  = 0x00d4aa
	embedFooter = "OmniTrade"
)

// WebhookNotifier posts a Discord-style embed to a webhook URL.
type WebhookNotifier struct {
	ChannelName string
	URL         string
	// Strict requires a discord.com or discordapp.com host on Verify.
	Strict bool
	Now    func() time.Time

	client *resty.Client
}

// NewWebhookNotifier creates a webhook channel named name.
func NewWebhookNotifier(name, webhookURL, proxyURL string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	c := resty.New().SetTimeout(timeout)
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return &WebhookNotifier{ChannelName: name, URL: webhookURL, Now: time.Now, client: c}
}

func (w *WebhookNotifier) Name() string { return w.ChannelName }

type embedFooterField struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Color       int              `json:"color"`
	Timestamp   string           `json:"timestamp"`
	Footer      embedFooterField `json:"footer"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Send posts the embed. Any 2xx status (Discord answers 204) is success.
func (w *WebhookNotifier) Send(ctx context.Context, title, message string) error {
	payload := webhookPayload{Embeds: []embed{{
		Title:       "🔔 " + title,
		Description: message,
		Color:       embedColor,
		Timestamp:   w.Now().UTC().Format(time.RFC3339),
		Footer:      embedFooterField{Text: embedFooter},
	}}}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(w.URL)
	if err != nil {
		return errors.Wrap(err, "webhook post")
	}
	if resp.IsError() {
		return errors.Errorf("HTTP %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Verify checks the webhook exists with a GET. It does not post a message.
func (w *WebhookNotifier) Verify(ctx context.Context) (string, error) {
	u, err := url.Parse(w.URL)
	if err != nil || u.Host == "" {
		return "", errors.Errorf("invalid webhook url %q", w.URL)
	}
	if w.Strict {
		if !discordHost(u.Hostname()) {
			return "", errors.New("webhook URL must be a Discord URL")
		}
	}

	resp, err := w.client.R().SetContext(ctx).Get(w.URL)
	if err != nil {
		return "", errors.Wrap(err, "webhook get")
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errors.Errorf("invalid webhook: HTTP %d", resp.StatusCode())
	}

	var info struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(resp.Body(), &info) == nil && info.Name != "" {
		return info.Name, nil
	}
	return u.Hostname(), nil
}

// discordHost matches discord.com, discordapp.com and their subdomains.
func discordHost(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range []string{"discord.com", "discordapp.com"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
