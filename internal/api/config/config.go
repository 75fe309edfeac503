package config

import (
	"time"

	"news-sentiment-api/pkg/config"
)

// Marketaux holds the configuration for the news provider API.
type Marketaux struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HuggingFace holds the configuration for the sentiment inference API.
type HuggingFace struct {
	URL                 string        `mapstructure:"url"`
	APIToken            string        `mapstructure:"api_token"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

// News holds the aggregation pipeline tunables.
type News struct {
	CacheDriver           string        `mapstructure:"cache_driver"` // memory or redis
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries       int           `mapstructure:"cache_max_entries"`
	RateLimitWindow       time.Duration `mapstructure:"rate_limit_window"`
	FreshnessWindow       time.Duration `mapstructure:"freshness_window"`
	PageCount             int           `mapstructure:"page_count"`
	AnnotationConcurrency int           `mapstructure:"annotation_concurrency"`
	DefaultLimit          int           `mapstructure:"default_limit"`
}

// Refresher holds configuration for the scheduled cache warm loop.
type Refresher struct {
	Enabled    bool     `mapstructure:"enabled"`
	Schedule   string   `mapstructure:"schedule"`
	SymbolSets []string `mapstructure:"symbol_sets"` // comma-separated symbols per set
}

// Config holds the full configuration for the API service.
type Config struct {
	App         config.App      `mapstructure:"app"`
	Logger      config.Logger   `mapstructure:"logger"`
	Database    config.Database `mapstructure:"database"`
	Redis       config.Redis    `mapstructure:"redis"`
	API         config.API      `mapstructure:"api"`
	Marketaux   Marketaux       `mapstructure:"marketaux"`
	HuggingFace HuggingFace     `mapstructure:"huggingface"`
	News        News            `mapstructure:"news"`
	Refresher   Refresher       `mapstructure:"refresher"`
}

// Load loads the API configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Marketaux.BaseURL == "" {
		c.Marketaux.BaseURL = "https://api.marketaux.com/v1"
	}
	if c.Marketaux.Language == "" {
		c.Marketaux.Language = "en"
	}
	if c.Marketaux.Timeout == 0 {
		c.Marketaux.Timeout = 30 * time.Second
	}
	if c.HuggingFace.Timeout == 0 {
		c.HuggingFace.Timeout = 30 * time.Second
	}
	if c.HuggingFace.MaxRequestPerMinute == 0 {
		c.HuggingFace.MaxRequestPerMinute = 60
	}
	if c.News.CacheDriver == "" {
		c.News.CacheDriver = "memory"
	}
	if c.News.CacheTTL == 0 {
		c.News.CacheTTL = 10 * time.Minute
	}
	if c.News.CacheMaxEntries == 0 {
		c.News.CacheMaxEntries = 128
	}
	if c.News.RateLimitWindow == 0 {
		c.News.RateLimitWindow = 10 * time.Second
	}
	if c.News.FreshnessWindow == 0 {
		c.News.FreshnessWindow = 24 * time.Hour
	}
	if c.News.PageCount == 0 {
		c.News.PageCount = 3
	}
	if c.News.AnnotationConcurrency == 0 {
		c.News.AnnotationConcurrency = 4
	}
	if c.News.DefaultLimit == 0 {
		c.News.DefaultLimit = 10
	}
	if c.Refresher.Schedule == "" {
		c.Refresher.Schedule = "@every 15m"
	}
}
