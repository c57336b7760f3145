// Package config loads the stackapp YAML file and applies STACKAPP_*
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/soaringjerry/stackapp/internal/scraper"
	"github.com/soaringjerry/stackapp/internal/utils"
)

const DefaultPath = "configs/stackapp.yaml"

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Scraper       ScraperConfig       `yaml:"scraper"`
}

type AppConfig struct {
	Addr        string   `yaml:"addr"`
	Timezone    string   `yaml:"timezone"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// ElasticsearchConfig with no addresses disables search.
type ElasticsearchConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// RedisConfig with an empty Addr keeps drafts in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ScraperConfig struct {
	BaseURL      string            `yaml:"base_url"`
	UserAgent    string            `yaml:"user_agent"`
	MaxPages     int               `yaml:"max_pages"`
	DefaultPages int               `yaml:"default_pages"`
	Timeout      time.Duration     `yaml:"timeout"`
	Selectors    scraper.Selectors `yaml:"selectors"`
}

func Default() Config {
	return Config{
		App: AppConfig{
			Addr:     ":8080",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "file:stackapp.db?_busy_timeout=5000",
		},
		Elasticsearch: ElasticsearchConfig{Index: "stackapp"},
		Scraper: ScraperConfig{
			BaseURL:      scraper.DefaultBaseURL,
			UserAgent:    scraper.DefaultUserAgent,
			MaxPages:     10,
			DefaultPages: 5,
			Timeout:      15 * time.Second,
			Selectors:    scraper.DefaultSelectors(),
		},
	}
}

// Load reads path over the defaults. A missing file is not an error so the
// service can run from environment variables alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.App.Addr = utils.SafeEnv("STACKAPP_ADDR", c.App.Addr)
	c.App.Timezone = utils.SafeEnv("STACKAPP_TIMEZONE", c.App.Timezone)
	c.App.JWTSecret = utils.SafeEnv("STACKAPP_JWT_SECRET", c.App.JWTSecret)
	c.App.CORSOrigins = utils.SafeEnvList("STACKAPP_CORS_ORIGINS", c.App.CORSOrigins)

	c.Database.Driver = utils.SafeEnv("STACKAPP_DB_DRIVER", c.Database.Driver)
	c.Database.DSN = utils.SafeEnv("STACKAPP_DB_DSN", c.Database.DSN)
	c.Database.MigrationsDir = utils.SafeEnv("STACKAPP_MIGRATIONS_DIR", c.Database.MigrationsDir)

	c.Elasticsearch.Addresses = utils.SafeEnvList("STACKAPP_ES_ADDRESSES", c.Elasticsearch.Addresses)
	c.Elasticsearch.Username = utils.SafeEnv("STACKAPP_ES_USERNAME", c.Elasticsearch.Username)
	c.Elasticsearch.Password = utils.SafeEnv("STACKAPP_ES_PASSWORD", c.Elasticsearch.Password)
	c.Elasticsearch.Index = utils.SafeEnv("STACKAPP_ES_INDEX", c.Elasticsearch.Index)

	c.Redis.Addr = utils.SafeEnv("STACKAPP_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = utils.SafeEnv("STACKAPP_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = utils.SafeEnvInt("STACKAPP_REDIS_DB", c.Redis.DB)

	c.Scraper.BaseURL = utils.SafeEnv("STACKAPP_SCRAPER_BASE_URL", c.Scraper.BaseURL)
	c.Scraper.UserAgent = utils.SafeEnv("STACKAPP_SCRAPER_USER_AGENT", c.Scraper.UserAgent)
	c.Scraper.MaxPages = utils.SafeEnvInt("STACKAPP_SCRAPER_MAX_PAGES", c.Scraper.MaxPages)
	c.Scraper.DefaultPages = utils.SafeEnvInt("STACKAPP_SCRAPER_DEFAULT_PAGES", c.Scraper.DefaultPages)
	c.Scraper.Timeout = utils.SafeEnvDuration("STACKAPP_SCRAPER_TIMEOUT", c.Scraper.Timeout)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Scraper.MaxPages < 1 || c.Scraper.MaxPages > 10 {
		return fmt.Errorf("scraper max_pages must be within 1..10, got %d", c.Scraper.MaxPages)
	}
	if c.Scraper.DefaultPages < 1 || c.Scraper.DefaultPages > c.Scraper.MaxPages {
		c.Scraper.DefaultPages = c.Scraper.MaxPages
	}
	return nil
}

// Location resolves App.Timezone; day boundaries are computed in it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}
