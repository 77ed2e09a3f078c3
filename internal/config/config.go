package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment surface of the service. Delivery constants
// mirror the app's tuning: average city traffic speed and the normal and
// bad-condition delivery-time ceilings.
type Config struct {
	Port        string `env:"CART_PORT" envDefault:"8083"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	AvgSpeedKmh            float64 `env:"AVG_SPEED_KMH" envDefault:"20"`
	MaxDeliveryMinutes     float64 `env:"MAX_DELIVERY_MIN" envDefault:"60"`
	MaxBadConditionMinutes float64 `env:"MAX_BAD_CONDITION_MIN" envDefault:"90"`

	// Change-feed events within this window collapse into one reload.
	FeedDebounce time.Duration `env:"CART_FEED_DEBOUNCE" envDefault:"300ms"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
