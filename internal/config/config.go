// Package config содержит логику чтения конфигурации сервиса общежития.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса общежития.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	DeviceAddress string `env:"DEVICE_ADDRESS"`
	RedisAddress  string `env:"REDIS_ADDR"`
	AuthSecret    string `env:"AUTH_SECRET"`
	BillingHour   int    `env:"BILLING_HOUR" envDefault:"-1"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envDeviceAddress := cfg.DeviceAddress
	envRedisAddress := cfg.RedisAddress
	envAuthSecret := cfg.AuthSecret
	envBillingHour := cfg.BillingHour

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.DeviceAddress, "f", "", "fingerprint terminal address")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for menu cache")
	flag.StringVar(&cfg.AuthSecret, "s", "hostel-secret", "secret key for auth tokens")
	flag.IntVar(&cfg.BillingHour, "b", 21, "hour of day for the nightly billing sweep")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envDeviceAddress != "" {
		cfg.DeviceAddress = envDeviceAddress
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envBillingHour >= 0 {
		cfg.BillingHour = envBillingHour
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.BillingHour < 0 || cfg.BillingHour > 23 {
		return nil, fmt.Errorf("billing hour must be between 0 and 23, got %d", cfg.BillingHour)
	}

	return cfg, nil
}
