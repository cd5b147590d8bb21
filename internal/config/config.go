package config

import (
	"fmt"

	pkgconfig "github.com/feastly/cart/pkg/config"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CART_HTTP_PORT" envDefault:"8003"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart snapshot TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Pricing: flat delivery fee in minor units (default ₹40.00) and tax
	// rate in basis points of the subtotal (default 5%).
	DeliveryFeeMinor int64 `env:"DELIVERY_FEE_MINOR" envDefault:"4000"`
	TaxRateBP        int64 `env:"TAX_RATE_BP" envDefault:"500"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("invalid cart TTL hours: %d", c.CartTTL)
	}
	if c.DeliveryFeeMinor < 0 {
		return fmt.Errorf("delivery fee must not be negative: %d", c.DeliveryFeeMinor)
	}
	if c.TaxRateBP < 0 || c.TaxRateBP > 10000 {
		return fmt.Errorf("tax rate must be between 0 and 10000 basis points: %d", c.TaxRateBP)
	}
	return nil
}
