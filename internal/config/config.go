package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Filter store backends.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// DefaultFilterWords are link fragments most users never want to see:
// ad networks, affiliate shorteners and tracking redirects.
var DefaultFilterWords = []string{
	"doubleclick",
	"googleadservices",
	"googlesyndication",
	"amzn.to",
	"bit.ly",
	"affiliate",
}

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	// YouTubeAPIKey enables the Data API fetcher. Without it the scraping fetcher is used.
	YouTubeAPIKey string `mapstructure:"YOUTUBE_API_KEY"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	// DefaultFilterWords seeds every new user's filters. Accepts a YAML list
	// or a comma separated string.
	DefaultFilterWords []string `mapstructure:"DEFAULT_FILTER_WORDS"`
	FilterStore        string   `mapstructure:"FILTER_STORE"`
	BadgerDBPath       string   `mapstructure:"BADGERDB_PATH"`

	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	FetchRetries int           `mapstructure:"FETCH_RETRIES"`
	// ScrapeFallback allows the headless browser fetcher when the API key is
	// missing or its quota is exhausted.
	ScrapeFallback bool `mapstructure:"SCRAPE_FALLBACK"`

	// MaxLinks caps how many links a single reply lists.
	MaxLinks int `mapstructure:"MAX_LINKS"`
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default, otherwise Unmarshal ignores env-only values.
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("YOUTUBE_API_KEY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEFAULT_FILTER_WORDS", DefaultFilterWords)
	v.SetDefault("FILTER_STORE", StoreMemory)
	v.SetDefault("BADGERDB_PATH", "./badger_data")
	v.SetDefault("FETCH_TIMEOUT", 15*time.Second)
	v.SetDefault("FETCH_RETRIES", 2)
	v.SetDefault("SCRAPE_FALLBACK", true)
	v.SetDefault("MAX_LINKS", 20)
}

// LoadConfig reads config.yaml from path, then lets environment variables override it.
// A missing config file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.YouTubeAPIKey == "" && !c.ScrapeFallback {
		return errors.New("YOUTUBE_API_KEY is not set and SCRAPE_FALLBACK is disabled")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	c.FilterStore = strings.ToLower(strings.TrimSpace(c.FilterStore))
	switch c.FilterStore {
	case StoreMemory:
	case StoreBadger:
		if c.BadgerDBPath == "" {
			return errors.New("BADGERDB_PATH is required for the badger filter store")
		}
	default:
		return fmt.Errorf("unknown FILTER_STORE %q (want %s or %s)", c.FilterStore, StoreMemory, StoreBadger)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative, got %d", c.FetchRetries)
	}
	if c.MaxLinks <= 0 {
		return fmt.Errorf("MAX_LINKS must be positive, got %d", c.MaxLinks)
	}
	return nil
}

// Level returns the parsed log level. LoadConfig has already validated it.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
