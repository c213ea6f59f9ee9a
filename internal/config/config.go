package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port   int
	AppEnv string

	LogLevel  string
	LogPretty bool

	ModelDir      string
	OrtLibrary    string
	CatalogPath   string
	TopK          int
	RankTimeout   time.Duration
	MaxUploadSize int64
	MaxPixels     int

	RateLimitPerMinute int
	RateLimitWindow    time.Duration
	CORSOrigins        []string

	KeepAliveURL      string
	KeepAliveInterval time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 5001)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("MODEL_DIR", "./models")
	v.SetDefault("ORT_LIBRARY_PATH", "")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("TOP_K", 5)
	v.SetDefault("RANK_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("MAX_IMAGE_PIXELS", 16_000_000)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("KEEPALIVE_URL", "")
	v.SetDefault("KEEPALIVE_INTERVAL", 10*time.Minute)
}

// Load reads configuration from the environment, optionally layered over
// the YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:               v.GetInt("PORT"),
		AppEnv:             v.GetString("APP_ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogPretty:          v.GetBool("LOG_PRETTY"),
		ModelDir:           v.GetString("MODEL_DIR"),
		OrtLibrary:         v.GetString("ORT_LIBRARY_PATH"),
		CatalogPath:        v.GetString("CATALOG_PATH"),
		TopK:               v.GetInt("TOP_K"),
		RankTimeout:        v.GetDuration("RANK_TIMEOUT"),
		MaxUploadSize:      v.GetInt64("MAX_UPLOAD_BYTES"),
		MaxPixels:          v.GetInt("MAX_IMAGE_PIXELS"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RateLimitWindow:    v.GetDuration("RATE_LIMIT_WINDOW"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		KeepAliveURL:       v.GetString("KEEPALIVE_URL"),
		KeepAliveInterval:  v.GetDuration("KEEPALIVE_INTERVAL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid PORT %d", c.Port)
	case c.TopK <= 0:
		return fmt.Errorf("invalid TOP_K %d", c.TopK)
	case c.MaxUploadSize <= 0:
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES %d", c.MaxUploadSize)
	case c.MaxPixels <= 0:
		return fmt.Errorf("invalid MAX_IMAGE_PIXELS %d", c.MaxPixels)
	case c.RateLimitPerMinute <= 0:
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE %d", c.RateLimitPerMinute)
	case c.RateLimitWindow <= 0:
		return fmt.Errorf("invalid RATE_LIMIT_WINDOW %s", c.RateLimitWindow)
	case c.KeepAliveURL != "" && c.KeepAliveInterval <= 0:
		return fmt.Errorf("invalid KEEPALIVE_INTERVAL %s", c.KeepAliveInterval)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
