// Package config provides configuration management: Viper-backed file/flag
// configuration plus the enumerated required-environment-variable contract.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultDatabaseDriver  = "sqlite3"
	DefaultDatabaseDSN     = "manaba-clone.db"
	DefaultCrawlerSleep    = 5
	DefaultDownloaderSleep = 5
	DefaultCredentialsFile = "credentials.json"
	DefaultCookieJarFile   = "cookies.json"
)

// DatabaseConfig holds the database connection settings consumed by
// internal/database.Open.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Validate checks that the database configuration is usable.
func (c *DatabaseConfig) Validate() error {
	if c.Driver == "" {
		return errors.New("database driver is required")
	}
	if c.DSN == "" {
		return errors.New("database dsn is required")
	}
	return nil
}

// CrawlerConfig holds crawler-daemon settings.
type CrawlerConfig struct {
	Debug        bool `mapstructure:"debug"`
	SleepSeconds int  `mapstructure:"sleep_seconds"`
}

// Validate checks that the crawler configuration is usable.
func (c *CrawlerConfig) Validate() error {
	if c.SleepSeconds < 0 {
		return errors.New("crawler sleep_seconds must be non-negative")
	}
	return nil
}

// DownloaderConfig holds downloader-daemon settings.
type DownloaderConfig struct {
	SleepSeconds int `mapstructure:"sleep_seconds"`
}

// Validate checks that the downloader configuration is usable.
func (c *DownloaderConfig) Validate() error {
	if c.SleepSeconds < 0 {
		return errors.New("downloader sleep_seconds must be non-negative")
	}
	return nil
}

// FetcherConfig holds the cookie-backed HTTPS fetcher's file locations.
type FetcherConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	CookieJarFile   string `mapstructure:"cookie_jar_file"`
}

// Validate checks that the fetcher configuration is usable.
func (c *FetcherConfig) Validate() error {
	if c.CredentialsFile == "" {
		return errors.New("fetcher credentials_file is required")
	}
	if c.CookieJarFile == "" {
		return errors.New("fetcher cookie_jar_file is required")
	}
	return nil
}

// Interface defines the configuration surface consumed by the rest of the
// application. Production code never calls viper directly.
type Interface interface {
	GetDatabaseConfig() *DatabaseConfig
	GetCrawlerConfig() *CrawlerConfig
	GetDownloaderConfig() *DownloaderConfig
	GetFetcherConfig() *FetcherConfig
	Validate() error
}

var _ Interface = (*Config)(nil)

// Config is the top-level application configuration.
type Config struct {
	Database   *DatabaseConfig   `mapstructure:"database"`
	Crawler    *CrawlerConfig    `mapstructure:"crawler"`
	Downloader *DownloaderConfig `mapstructure:"downloader"`
	Fetcher    *FetcherConfig    `mapstructure:"fetcher"`
}

// GetDatabaseConfig returns the database configuration.
func (c *Config) GetDatabaseConfig() *DatabaseConfig { return c.Database }

// GetCrawlerConfig returns the crawler configuration.
func (c *Config) GetCrawlerConfig() *CrawlerConfig { return c.Crawler }

// GetDownloaderConfig returns the downloader configuration.
func (c *Config) GetDownloaderConfig() *DownloaderConfig { return c.Downloader }

// GetFetcherConfig returns the fetcher configuration.
func (c *Config) GetFetcherConfig() *FetcherConfig { return c.Fetcher }

// Validate validates every section of the configuration.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("%w: database section missing", ErrConfigInvalid)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Crawler == nil {
		return fmt.Errorf("%w: crawler section missing", ErrConfigInvalid)
	}
	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("crawler: %w", err)
	}
	if c.Downloader == nil {
		return fmt.Errorf("%w: downloader section missing", ErrConfigInvalid)
	}
	if err := c.Downloader.Validate(); err != nil {
		return fmt.Errorf("downloader: %w", err)
	}
	if c.Fetcher == nil {
		return fmt.Errorf("%w: fetcher section missing", ErrConfigInvalid)
	}
	if err := c.Fetcher.Validate(); err != nil {
		return fmt.Errorf("fetcher: %w", err)
	}
	return nil
}

// Default returns a Config populated with package defaults.
func Default() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			DSN:    DefaultDatabaseDSN,
		},
		Crawler: &CrawlerConfig{
			Debug:        false,
			SleepSeconds: DefaultCrawlerSleep,
		},
		Downloader: &DownloaderConfig{
			SleepSeconds: DefaultDownloaderSleep,
		},
		Fetcher: &FetcherConfig{
			CredentialsFile: DefaultCredentialsFile,
			CookieJarFile:   DefaultCookieJarFile,
		},
	}
}

// Load builds a Config from Viper (file + flags, already bound by the
// caller) layered over package defaults and the required-environment-variable
// contract from LoadEnv. Viper values win over defaults; the crawler and
// downloader sleep settings are then overridden by the environment
// contract: the environment is authoritative for the daemons' own sleep
// intervals.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	if v.IsSet("database.driver") {
		cfg.Database.Driver = v.GetString("database.driver")
	}
	if v.IsSet("database.dsn") {
		cfg.Database.DSN = v.GetString("database.dsn")
	}
	if v.IsSet("fetcher.credentials_file") {
		cfg.Fetcher.CredentialsFile = v.GetString("fetcher.credentials_file")
	}
	if v.IsSet("fetcher.cookie_jar_file") {
		cfg.Fetcher.CookieJarFile = v.GetString("fetcher.cookie_jar_file")
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg.Crawler.Debug = env.Debug
	cfg.Crawler.SleepSeconds = env.CrawlerSleep
	cfg.Downloader.SleepSeconds = env.DownloaderSleep

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
