package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database      DatabaseConfig      `toml:"database"`
	Redis         RedisConfig         `toml:"redis"`
	Server        ServerConfig        `toml:"server"`
	Assets        AssetsConfig        `toml:"assets"`
	Signals       SignalsConfig       `toml:"signals"`
	Notifications NotificationsConfig `toml:"notifications"`
	Scheduling    SchedulingConfig    `toml:"scheduling"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig points at the remote alarm store. When disabled the local SQLite store is authoritative.
type RedisConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AssetsConfig controls where audio is fetched from and cached.
type AssetsConfig struct {
	CacheDir          string        `toml:"cache_dir"`
	SpeechBaseURL     string        `toml:"speech_base_url"`
	FetchTimeout      time.Duration `toml:"fetch_timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	CacheTTL          time.Duration `toml:"cache_ttl"`
}

// SignalsConfig lists the external adaptation signal providers. Empty URLs disable a provider.
type SignalsConfig struct {
	SleepURL        string `toml:"sleep_url"`
	ConditionsURL   string `toml:"conditions_url"`
	HolidayCalendar string `toml:"holiday_calendar"`
}

// NotificationsConfig selects the notification delivery target.
type NotificationsConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// SchedulingConfig holds timer cadences and the local timezone.
type SchedulingConfig struct {
	Timezone           string        `toml:"timezone"`
	AssetSweep         time.Duration `toml:"asset_sweep"`
	TriggerDetection   time.Duration `toml:"trigger_detection"`
	Rediscovery        time.Duration `toml:"rediscovery"`
	HorizonOccurrences int           `toml:"horizon_occurrences"`
}

// Location resolves the configured timezone, defaulting to [time.Local].
func (s SchedulingConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, s.Timezone, err)
	}
	return loc, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
