package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "GIFTCARD"

// APIConfig holds the REST collaborator settings.
type APIConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SocketConfig holds the realtime transport settings.
type SocketConfig struct {
	// URL is the socket server root; the role namespace is appended.
	URL string `mapstructure:"url" yaml:"url"`

	// ReconnectAttempts bounds automatic reconnection after a drop.
	ReconnectAttempts int `mapstructure:"reconnect_attempts" yaml:"reconnect_attempts"`

	ReconnectDelayMS    int `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
	ReconnectDelayMaxMS int `mapstructure:"reconnect_delay_max_ms" yaml:"reconnect_delay_max_ms"`
	ConnectTimeoutSec   int `mapstructure:"connect_timeout_sec" yaml:"connect_timeout_sec"`
}

// RealtimeConfig controls how shared connections are torn down and how
// many pushed records are kept ahead of the fetched page.
type RealtimeConfig struct {
	// Teardown is "refcount" or "eager".
	Teardown    string `mapstructure:"teardown" yaml:"teardown"`
	OverlaySize int    `mapstructure:"overlay_size" yaml:"overlay_size"`
}

// CacheConfig holds staleness windows and refetch intervals in seconds.
type CacheConfig struct {
	UnreadStaleSec   int    `mapstructure:"unread_stale_sec" yaml:"unread_stale_sec"`
	UnreadRefetchSec int    `mapstructure:"unread_refetch_sec" yaml:"unread_refetch_sec"`
	ListStaleSec     int    `mapstructure:"list_stale_sec" yaml:"list_stale_sec"`
	ListRefetchSec   int    `mapstructure:"list_refetch_sec" yaml:"list_refetch_sec"`
	SnapshotPath     string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
}

// NotificationsConfig holds client-side notification settings.
type NotificationsConfig struct {
	Desktop bool `mapstructure:"desktop" yaml:"desktop"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// KeyringConfig holds the credential store settings.
type KeyringConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig           `mapstructure:"api" yaml:"api"`
	Socket        SocketConfig        `mapstructure:"socket" yaml:"socket"`
	Realtime      RealtimeConfig      `mapstructure:"realtime" yaml:"realtime"`
	Cache         CacheConfig         `mapstructure:"cache" yaml:"cache"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Display       DisplayConfig       `mapstructure:"display" yaml:"display"`
	Keyring       KeyringConfig       `mapstructure:"keyring" yaml:"keyring"`
}

// APITimeout returns the REST timeout as a duration.
func (c AppConfig) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// ConfigDir returns ~/.config/giftcard-console, falling back to the
// working directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "giftcard-console")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/giftcard-console/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "http://localhost:4000/api")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("socket.url", "ws://localhost:4000/ws")
	v.SetDefault("socket.reconnect_attempts", 5)
	v.SetDefault("socket.reconnect_delay_ms", 1000)
	v.SetDefault("socket.reconnect_delay_max_ms", 5000)
	v.SetDefault("socket.connect_timeout_sec", 20)
	v.SetDefault("realtime.teardown", "refcount")
	v.SetDefault("realtime.overlay_size", 10)
	v.SetDefault("cache.unread_stale_sec", 30)
	v.SetDefault("cache.unread_refetch_sec", 60)
	v.SetDefault("cache.list_stale_sec", 30)
	v.SetDefault("cache.list_refetch_sec", 60)
	v.SetDefault("cache.snapshot_path", ":memory:")
	v.SetDefault("notifications.desktop", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(ConfigDir(), "console.log"))
	v.SetDefault("display.theme", "default")
	v.SetDefault("keyring.dir", filepath.Join(ConfigDir(), "credentials"))
}

// FromViper decodes and validates configuration from an already prepared
// viper instance.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	ApplyDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("socket", cfg.Socket)
	v.Set("realtime", cfg.Realtime)
	v.Set("cache", cfg.Cache)
	v.Set("notifications", cfg.Notifications)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)
	v.Set("keyring", cfg.Keyring)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if strings.TrimSpace(c.Socket.URL) == "" {
		return fmt.Errorf("socket.url is required")
	}
	switch c.Realtime.Teardown {
	case "refcount", "eager":
	default:
		return fmt.Errorf("realtime.teardown must be refcount or eager, got %q", c.Realtime.Teardown)
	}
	if c.Realtime.OverlaySize < 1 {
		return fmt.Errorf("realtime.overlay_size must be positive")
	}
	return nil
}
