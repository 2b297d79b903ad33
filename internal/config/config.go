// Package config loads the YAML service configuration.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"quizdesk/internal/grading"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// Mode is the gin mode: debug, release or test.
		Mode         string   `yaml:"mode"`
		RateLimit    int      `yaml:"rateLimit"`
		AllowOrigins []string `yaml:"allowOrigins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
		File   string `yaml:"file"`
	} `yaml:"log"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Feedback struct {
		Enabled bool `yaml:"enabled"`
		// Provider is "gemini" or "openai". Empty disables feedback.
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"baseURL"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"feedback"`
	Grading struct {
		PassThreshold float64 `yaml:"passThreshold"`
	} `yaml:"grading"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Auth.JWTSecret, "QUIZDESK_JWT_SECRET")
	override(&c.Feedback.APIKey, "QUIZDESK_LLM_API_KEY")
	override(&c.Postgres.URL, "QUIZDESK_POSTGRES_URL")
	override(&c.Redis.Addr, "QUIZDESK_REDIS_ADDR")
	override(&c.Redis.Password, "QUIZDESK_REDIS_PASSWORD")
	override(&c.Log.Level, "QUIZDESK_LOG_LEVEL")
	if raw := os.Getenv("QUIZDESK_RATE_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			c.Server.RateLimit = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Grading.PassThreshold <= 0 || c.Grading.PassThreshold > 1 {
		c.Grading.PassThreshold = grading.DefaultPassThreshold
	}
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// FeedbackEnabled reports whether a feedback provider should be built.
func (c Config) FeedbackEnabled() bool {
	return c.Feedback.Enabled && c.Feedback.Provider != ""
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
