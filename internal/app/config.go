package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	UnitsPath string // directory containing unit descriptors

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	MaxConcurrency int
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Sandbox        bool

	Watch          bool
	DebounceWindow time.Duration

	RedisURL    string
	RedisStream string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.UnitsPath == "" {
		return nil, errors.New("UnitsPath is a required configuration field and cannot be empty")
	}
	if cfg.MaxConcurrency < 0 {
		return nil, errors.New("MaxConcurrency cannot be negative")
	}
	if cfg.RetryAttempts < 0 {
		return nil, errors.New("RetryAttempts cannot be negative")
	}

	return &cfg, nil
}
