package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("OMNITRADE_HOME", home)
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndOrder(t *testing.T) {
	path := writeConfig(t, `
exchanges:
  - name: Bybit
  - name: binance
notifications:
  telegram:
    enabled: true
    bot_token: abc
`)
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"bybit", "binance"}, cfg.ExchangeNames())
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 15*time.Second, cfg.NotifyTimeout())
	assert.Equal(t, filepath.Join(cfg.Home, "daemon.log"), cfg.Daemon.LogFile)
	assert.Equal(t, filepath.Join(cfg.Home, "alerts.json"), cfg.AlertsFile())
	assert.True(t, cfg.HistoryEnabled())

	// Telegram lacks a chat id, so it is not a dispatch target.
	assert.Empty(t, cfg.Notifications.EnabledChannels())
}

func TestLoad_EnvOverridesAndDotEnv(t *testing.T) {
	path := writeConfig(t, `
exchanges: [{name: bybit}]
notifications:
  telegram: {enabled: true}
  discord: {enabled: true}
  native: {enabled: true}
daemon:
  poll_interval: 30
`)
	home := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("TELEGRAM_CHAT_ID=42\n"), 0o600))
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")
	t.Setenv("OMNITRADE_POLL_INTERVAL", "5")
	t.Cleanup(func() { os.Unsetenv("TELEGRAM_CHAT_ID") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Notifications.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, []string{"telegram", "discord", "native"}, cfg.Notifications.EnabledChannels())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("OMNITRADE_HOME", t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"no exchanges", Config{Daemon: DaemonConfig{PollInterval: 60}}, true},
		{"unnamed exchange", Config{Exchanges: []ExchangeConfig{{}}, Daemon: DaemonConfig{PollInterval: 60}}, true},
		{"duplicate", Config{Exchanges: []ExchangeConfig{{Name: "a"}, {Name: "a"}}, Daemon: DaemonConfig{PollInterval: 60}}, true},
		{"unknown default", Config{Exchanges: []ExchangeConfig{{Name: "a"}}, DefaultExchange: "b", Daemon: DaemonConfig{PollInterval: 60}}, true},
		{"bad interval", Config{Exchanges: []ExchangeConfig{{Name: "a"}}, Daemon: DaemonConfig{PollInterval: -1}}, true},
		{"ok", Config{Exchanges: []ExchangeConfig{{Name: "a"}}, DefaultExchange: "a", Daemon: DaemonConfig{PollInterval: 60}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPermissions(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "private.yaml")
	require.NoError(t, os.WriteFile(private, nil, 0o600))
	assert.Empty(t, CheckPermissions(private))

	shared := filepath.Join(dir, "shared.yaml")
	require.NoError(t, os.WriteFile(shared, nil, 0o600))
	require.NoError(t, os.Chmod(shared, 0o644))
	assert.Contains(t, CheckPermissions(shared), "readable by others")

	assert.Empty(t, CheckPermissions(filepath.Join(dir, "missing.yaml")))
}
