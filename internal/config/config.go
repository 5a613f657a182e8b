// Package config loads and saves financas settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment overrides.
const (
	EnvRateURL  = "FINANCAS_SELIC_URL"
	EnvRate     = "FINANCAS_SELIC_RATE"
	EnvFile     = "FINANCAS_FILE"
	EnvLogLevel = "FINANCAS_LOG_LEVEL"
)

const appName = "financas"

// Config holds all financas configuration. Goal parameters are deliberately
// absent: they are supplied per run and never written to disk.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Stats      StatsConfig      `toml:"stats"`
	Rates      RatesConfig      `toml:"rates"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	File     string `toml:"file,omitempty"` // default export file or directory
	LogLevel string `toml:"log_level"`
}

// StatsConfig holds rolling statistics settings.
type StatsConfig struct {
	Windows    []int  `toml:"windows"`
	WindowMode string `toml:"window_mode"` // "rows" or "calendar"
}

// RatesConfig holds reference rate provider settings.
type RatesConfig struct {
	Endpoint       string   `toml:"endpoint,omitempty"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	TTLHours       int      `toml:"ttl_hours"`
	DiskCache      bool     `toml:"disk_cache"`
	FallbackRate   *float64 `toml:"fallback_rate,omitempty"` // percent, used when the lookup fails
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LogLevel: "warn",
		},
		Stats: StatsConfig{
			Windows:    []int{6, 12, 24},
			WindowMode: "rows",
		},
		Rates: RatesConfig{
			TimeoutSeconds: 10,
			TTLHours:       24,
			DiskCache:      true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", appName)
}

// CachePath returns the rate snapshot database path.
func CachePath() string {
	return filepath.Join(CacheDir(), "rates.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GetRateEndpoint returns the rate endpoint from env var or config, in that order.
// Empty means the provider default.
func GetRateEndpoint(cfg Config) string {
	if u := strings.TrimSpace(os.Getenv(EnvRateURL)); u != "" {
		return u
	}
	return cfg.Rates.Endpoint
}

// GetFallbackRate returns the rate override (percent) from env var or config.
// nil means no fallback is configured.
func GetFallbackRate(cfg Config) (*float64, error) {
	if s := strings.TrimSpace(os.Getenv(EnvRate)); s != "" {
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid rate %q: %w", EnvRate, s, err)
		}
		return &v, nil
	}
	return cfg.Rates.FallbackRate, nil
}

// GetFile returns the export path from env var or config.
func GetFile(cfg Config) string {
	if f := strings.TrimSpace(os.Getenv(EnvFile)); f != "" {
		return f
	}
	return cfg.General.File
}

// GetLogLevel returns the log level from env var or config.
func GetLogLevel(cfg Config) string {
	if l := strings.TrimSpace(os.Getenv(EnvLogLevel)); l != "" {
		return l
	}
	return cfg.General.LogLevel
}

// RateTimeout returns the rate request timeout.
func (c RatesConfig) RateTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns how long a fetched rate history stays fresh.
func (c RatesConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TTLHours) * time.Hour
}
