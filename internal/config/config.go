package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CatalogConfig holds configuration for the remote TV metadata service.
type CatalogConfig struct {
	AccessToken string `mapstructure:"access_token"`
	BaseURL     string `mapstructure:"base_url"`
	Language    string `mapstructure:"language"`
	Timeout     int    `mapstructure:"timeout"` // seconds
}

// SyncConfig holds schedules for the background refresh jobs.
type SyncConfig struct {
	ShowRefreshCron   string `mapstructure:"show_refresh_cron"`
	ConfigRefreshCron string `mapstructure:"config_refresh_cron"`
	RunOnStart        bool   `mapstructure:"run_on_start"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "./data/showrunner.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Catalog: CatalogConfig{
			BaseURL:  "https://api.themoviedb.org",
			Language: "en-US",
			Timeout:  30,
		},
		Sync: SyncConfig{
			ShowRefreshCron:   "0 4 * * *",
			ConfigRefreshCron: "0 5 * * *",
			RunOnStart:        true,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.showrunner")
	}

	v.SetEnvPrefix("SHOWRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The original deployment supplied the token as TMDB_API_KEY_V4.
	_ = v.BindEnv("catalog.access_token", "SHOWRUNNER_CATALOG_ACCESS_TOKEN", "TMDB_API_KEY_V4")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Catalog.AccessToken == "" && EmbeddedCatalogToken != "" {
		cfg.Catalog.AccessToken = EmbeddedCatalogToken
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.path", "./data/showrunner.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("catalog.base_url", "https://api.themoviedb.org")
	v.SetDefault("catalog.language", "en-US")
	v.SetDefault("catalog.timeout", 30)

	v.SetDefault("sync.show_refresh_cron", "0 4 * * *")
	v.SetDefault("sync.config_refresh_cron", "0 5 * * *")
	v.SetDefault("sync.run_on_start", true)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
