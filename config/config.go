package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	DataFile      string        `mapstructure:"DATA_FILE"`
	ReloadDelay   time.Duration `mapstructure:"RELOAD_DELAY"`
	WatchDataFile bool          `mapstructure:"WATCH_DATA_FILE"`
	RedisURL      string        `mapstructure:"REDIS_URL"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	MongoURL      string        `mapstructure:"MONGO_URL"`
	MongoDB       string        `mapstructure:"MONGO_DB"`
	FHIREndpoint  string        `mapstructure:"FHIR_ENDPOINT"`
	BaseURL       string        `mapstructure:"BASE_URL"`
}

var keys = []string{
	"PORT", "ENV", "DATA_FILE", "RELOAD_DELAY", "WATCH_DATA_FILE", "REDIS_URL",
	"CACHE_TTL", "MONGO_URL", "MONGO_DB", "FHIR_ENDPOINT", "BASE_URL",
}

// Load reads the configuration from the environment and an optional .env file
// in the working directory.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file.  Environment variables win over
// the file; a missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "9000")
	v.SetDefault("ENV", "production")
	v.SetDefault("DATA_FILE", "diabetes_demo.csv")
	v.SetDefault("RELOAD_DELAY", "3s")
	v.SetDefault("WATCH_DATA_FILE", false)
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("MONGO_DB", "riskservice")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PieBaseURL is the URL pies are served under, as referenced from FHIR
// RiskAssessment.basis.
func (c *Config) PieBaseURL() string {
	base := c.BaseURL
	if base == "" {
		base = "http://localhost:" + c.Port
	}
	return strings.TrimSuffix(base, "/") + "/pies"
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.DataFile == "" {
		return fmt.Errorf("DATA_FILE is required")
	}
	if c.ReloadDelay <= 0 {
		return fmt.Errorf("RELOAD_DELAY must be positive, got %s", c.ReloadDelay)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL, got %q", c.RedisURL)
	}
	if c.MongoURL != "" && c.MongoDB == "" {
		return fmt.Errorf("MONGO_DB is required when MONGO_URL is set")
	}
	for name, raw := range map[string]string{"FHIR_ENDPOINT": c.FHIREndpoint, "BASE_URL": c.BaseURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	return nil
}
