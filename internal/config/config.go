// Package config loads service configuration from an optional YAML file, an
// optional .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Port        string          `yaml:"port"`
	DatabaseURL string          `yaml:"database_url"`
	Auth        AuthConfig      `yaml:"auth"`
	AI          AIConfig        `yaml:"ai"`
	Storage     StorageConfig   `yaml:"storage"`
	Market      MarketConfig    `yaml:"market"`
	News        NewsConfig      `yaml:"news"`
	Telegram    TelegramConfig  `yaml:"telegram"`
	Warehouse   WarehouseConfig `yaml:"warehouse"`
	Log         LogConfig       `yaml:"log"`

	ReminderInterval time.Duration `yaml:"reminder_interval"`
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Audience  string `yaml:"audience"`
}

// AIConfig configures the Gemini client.
type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// StorageConfig configures object storage for imports and avatars.
type StorageConfig struct {
	Bucket string `yaml:"bucket"`
}

// MarketConfig configures the price providers.
type MarketConfig struct {
	CoinGeckoBaseURL string            `yaml:"coingecko_base_url"`
	MetalsURL        string            `yaml:"metals_url"`
	MetalsPaths      map[string]string `yaml:"metals_paths"` // metal -> JSONPath, price per troy ounce
	CacheTTL         time.Duration     `yaml:"cache_ttl"`
}

// NewsConfig configures the news feed proxy.
type NewsConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TelegramConfig configures optional reminder delivery over Telegram.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

// WarehouseConfig configures the BigQuery export target.
type WarehouseConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with defaults for every optional key.
func Default() *Config {
	return &Config{
		Port: "8080",
		Auth: AuthConfig{
			Audience: "authenticated",
		},
		AI: AIConfig{
			Model: "gemini-2.5-flash",
		},
		Market: MarketConfig{
			CoinGeckoBaseURL: "https://api.coingecko.com/api/v3",
			MetalsPaths: map[string]string{
				"gold":      "$.rates.XAU",
				"silver":    "$.rates.XAG",
				"platinum":  "$.rates.XPT",
				"palladium": "$.rates.XPD",
			},
			CacheTTL: time.Minute,
		},
		News: NewsConfig{
			BaseURL: "https://newsapi.org/v2",
		},
		Warehouse: WarehouseConfig{
			Dataset: "finsight",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		ReminderInterval: time.Hour,
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// missing YAML file is only an error when FINSIGHT_CONFIG names it explicitly.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("FINSIGHT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config file over the defaults without touching the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			// plain integers are seconds
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			d = time.Duration(secs) * time.Second
		}
		*dst = d
		return nil
	}

	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWT_AUDIENCE", &c.Auth.Audience)
	str("GEMINI_API_KEY", &c.AI.APIKey)
	str("GEMINI_MODEL", &c.AI.Model)
	str("GCS_BUCKET", &c.Storage.Bucket)
	str("COINGECKO_BASE_URL", &c.Market.CoinGeckoBaseURL)
	str("METALS_URL", &c.Market.MetalsURL)
	str("NEWS_API_KEY", &c.News.APIKey)
	str("NEWS_BASE_URL", &c.News.BaseURL)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("BIGQUERY_PROJECT", &c.Warehouse.Project)
	str("BIGQUERY_DATASET", &c.Warehouse.Dataset)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("METALS_PATHS"); ok && v != "" {
		paths, err := parsePairs(v)
		if err != nil {
			return fmt.Errorf("invalid METALS_PATHS: %w", err)
		}
		c.Market.MetalsPaths = paths
	}

	if err := dur("MARKET_CACHE_TTL", &c.Market.CacheTTL); err != nil {
		return err
	}
	if err := dur("REMINDER_INTERVAL", &c.ReminderInterval); err != nil {
		return err
	}
	return nil
}

// parsePairs parses "gold=$.rates.XAU,silver=$.rates.XAG".
func parsePairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("malformed pair %q", part)
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out, nil
}

// Validate reports every missing key required to serve the API.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Port == "" {
		missing = append(missing, "PORT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
