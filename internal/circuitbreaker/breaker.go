package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ramukaka/market/internal/logger"
	"github.com/sony/gobreaker/v2"
)

type Config struct {
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // how long to stay open before probing
	// Ignore lists errors that mean "the call worked but found nothing"; they never count as failures.
	Ignore []error
}

func (c Config) withDefaults() Config {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// New builds a breaker that logs its state changes.
func New[T any](name string, cfg Config, log *slog.Logger) *gobreaker.CircuitBreaker[T] {
	cfg = cfg.withDefaults()
	log = logger.OrDefault(log)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, ignored := range cfg.Ignore {
				if errors.Is(err, ignored) {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
