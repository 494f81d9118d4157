package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port  string `yaml:"port"`
		Debug bool   `yaml:"debug"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		UserStateTTL    string `yaml:"userStateTTL"`
		QuestionPoolTTL string `yaml:"questionPoolTTL"`
		IdempotencyTTL  string `yaml:"idempotencyTTL"`
		SessionAskedTTL string `yaml:"sessionAskedTTL"`
	} `yaml:"cache"`
	Quiz struct {
		MinStreakToIncrease int    `yaml:"minStreakToIncrease"`
		StreakDecay         string `yaml:"streakDecay"`
	} `yaml:"quiz"`
	RateLimit struct {
		PerWindow int    `yaml:"perWindow"`
		Window    string `yaml:"window"`
	} `yaml:"rateLimit"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty
// or malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// MinStreakToIncrease returns the configured streak threshold for a
// difficulty step up, defaulting to 2.
func (c Config) MinStreakToIncrease() int {
	if c.Quiz.MinStreakToIncrease > 0 {
		return c.Quiz.MinStreakToIncrease
	}
	return 2
}

// RateLimitPerWindow returns the per-user request budget, defaulting to
// 60 per window.
func (c Config) RateLimitPerWindow() int {
	if c.RateLimit.PerWindow > 0 {
		return c.RateLimit.PerWindow
	}
	return 60
}
