package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type API struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	MaxRetries int           `yaml:"max_retries"` // read retries only; writes are never retried
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Poll struct {
	Fast     time.Duration `yaml:"fast"`     // relations, officer state
	Slow     time.Duration `yaml:"slow"`     // full unit/incident/record lists
	Location time.Duration `yaml:"location"` // self-report cadence (unit role)
}

type Feed struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type Metrics struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// Unit seeds the location source when running under the unit role.
type Unit struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type Config struct {
	API     API     `yaml:"api"`
	Auth    Auth    `yaml:"auth"`
	Poll    Poll    `yaml:"poll"`
	Feed    Feed    `yaml:"feed"`
	Metrics Metrics `yaml:"metrics"`
	Unit    Unit    `yaml:"unit"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if c.Auth.Username == "" {
		return nil, errors.New("auth.username is required")
	}
	// Defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 5 * time.Second
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = 3
	}
	if c.API.Backoff == 0 {
		c.API.Backoff = 500 * time.Millisecond
	}
	if c.API.MaxBackoff == 0 {
		c.API.MaxBackoff = 5 * time.Second
	}
	if c.Poll.Fast == 0 {
		c.Poll.Fast = 6 * time.Second
	}
	if c.Poll.Slow == 0 {
		c.Poll.Slow = 15 * time.Second
	}
	if c.Poll.Location == 0 {
		c.Poll.Location = 10 * time.Second
	}
	if c.Feed.ListenAddress == "" {
		c.Feed.ListenAddress = ":8090"
	}
	if c.Feed.ReadTimeout == 0 {
		c.Feed.ReadTimeout = 5 * time.Second
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = 5 * time.Second
	}
	if c.Feed.IdleTimeout == 0 {
		c.Feed.IdleTimeout = 60 * time.Second
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = ":9108"
	}
	return &c, nil
}
