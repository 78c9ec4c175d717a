package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// HistoryDisabled turns off the SQLite trigger history when used as daemon.history_db.
const HistoryDisabled = "off"

// ExchangeConfig describes one exchange the daemon may poll.
type ExchangeConfig struct {
	Name     string `yaml:"name"`
	APIKey   string `yaml:"api_key"`
	Secret   string `yaml:"secret"`
	Password string `yaml:"password"`
	Testnet  bool   `yaml:"testnet"`
	BaseURL  string `yaml:"base_url"`
}

// TelegramConfig holds chat-bot channel credentials.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Ready reports whether the channel is enabled and fully configured.
func (t TelegramConfig) Ready() bool {
	return t.Enabled && t.BotToken != "" && t.ChatID != ""
}

// DiscordConfig holds webhook channel settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

func (d DiscordConfig) Ready() bool {
	return d.Enabled && d.WebhookURL != ""
}

// NativeConfig toggles OS-native desktop notifications.
type NativeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Notifications groups every notification channel.
type Notifications struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Native   NativeConfig   `yaml:"native"`
}

// EnabledChannels lists the channel names that would be used for dispatch.
func (n Notifications) EnabledChannels() []string {
	var names []string
	if n.Telegram.Ready() {
		names = append(names, "telegram")
	}
	if n.Discord.Ready() {
		names = append(names, "discord")
	}
	if n.Native.Enabled {
		names = append(names, "native")
	}
	return names
}

// DaemonConfig controls the background alert daemon.
type DaemonConfig struct {
	PollInterval  int    `yaml:"poll_interval"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	HistoryDB     string `yaml:"history_db"`
	MetricsAddr   string `yaml:"metrics_addr"`
	NotifyTimeout int    `yaml:"notify_timeout"`
}

// Config holds all application configuration.
type Config struct {
	Exchanges       []ExchangeConfig `yaml:"exchanges"`
	DefaultExchange string           `yaml:"default_exchange"`
	Notifications   Notifications    `yaml:"notifications"`
	Daemon          DaemonConfig     `yaml:"daemon"`
	Proxy           string           `yaml:"proxy"`

	// Resolved at load time, not read from YAML.
	Home string `yaml:"-"`
	Path string `yaml:"-"`
}

// HomeDir returns the data directory: $OMNITRADE_HOME or ~/.omnitrade.
func HomeDir() string {
	if v := os.Getenv("OMNITRADE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".omnitrade"
	}
	return filepath.Join(home, ".omnitrade")
}

// DefaultPath is the config file used when no -config flag is given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := &Config{Path: path, Home: HomeDir()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// .env never overrides variables that are already set.
	if err := godotenv.Load(filepath.Join(cfg.Home, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Discord.WebhookURL = v
	}
	if v := os.Getenv("OMNITRADE_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Daemon.PollInterval = n
		}
	}
	if v := os.Getenv("OMNITRADE_LOG_LEVEL"); v != "" {
		cfg.Daemon.LogLevel = v
	}
	if v := os.Getenv("OMNITRADE_METRICS_ADDR"); v != "" {
		cfg.Daemon.MetricsAddr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Daemon.PollInterval == 0 {
		cfg.Daemon.PollInterval = 60
	}
	if cfg.Daemon.LogFile == "" {
		cfg.Daemon.LogFile = filepath.Join(cfg.Home, "daemon.log")
	}
	if cfg.Daemon.LogLevel == "" {
		cfg.Daemon.LogLevel = "info"
	}
	if cfg.Daemon.HistoryDB == "" {
		cfg.Daemon.HistoryDB = filepath.Join(cfg.Home, "history.db")
	}
	if cfg.Daemon.NotifyTimeout <= 0 {
		cfg.Daemon.NotifyTimeout = 15
	}
	for i := range cfg.Exchanges {
		cfg.Exchanges[i].Name = strings.ToLower(strings.TrimSpace(cfg.Exchanges[i].Name))
	}
	cfg.DefaultExchange = strings.ToLower(cfg.DefaultExchange)
}

// Validate checks that all required fields are set. Incomplete notification
// channels are not errors; they are simply not dispatched to.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("exchanges: at least one exchange is required")
	}
	seen := make(map[string]bool, len(c.Exchanges))
	for i, ex := range c.Exchanges {
		if ex.Name == "" {
			return fmt.Errorf("exchanges[%d].name is required", i)
		}
		if seen[ex.Name] {
			return fmt.Errorf("exchanges[%d]: duplicate exchange %q", i, ex.Name)
		}
		seen[ex.Name] = true
	}
	if c.DefaultExchange != "" && !seen[c.DefaultExchange] {
		return fmt.Errorf("default_exchange %q is not configured", c.DefaultExchange)
	}
	if c.Daemon.PollInterval <= 0 {
		return fmt.Errorf("daemon.poll_interval must be positive")
	}
	return nil
}

// ExchangeNames returns the configured exchange names in file order.
func (c *Config) ExchangeNames() []string {
	names := make([]string, 0, len(c.Exchanges))
	for _, ex := range c.Exchanges {
		names = append(names, ex.Name)
	}
	return names
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollInterval) * time.Second
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Daemon.NotifyTimeout) * time.Second
}

// HistoryEnabled reports whether trigger history should be written.
func (c *Config) HistoryEnabled() bool {
	return c.Daemon.HistoryDB != HistoryDisabled
}

func (c *Config) AlertsFile() string { return filepath.Join(c.Home, "alerts.json") }

// CheckPermissions returns a warning when the config file is readable by
// group or others. It never fails: an unreadable mode yields no warning.
func CheckPermissions(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	mode := info.Mode().Perm()
	if mode&0o044 == 0 {
		return ""
	}
	return fmt.Sprintf("config file %s is readable by others (mode %o); run 'chmod 600 %s'", path, mode, path)
}
