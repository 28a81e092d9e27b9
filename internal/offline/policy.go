package offline

import (
	"time"

	"equipqr/internal/config"
)

// Policy holds the retry and admission limits applied by a Manager.
type Policy struct {
	MaxRetries      int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	MaxPayloadBytes int
	MaxItems        int
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	cfg := config.Default()
	return PolicyFromConfig(&cfg)
}

// PolicyFromConfig reads the queue section of cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxRetries:      cfg.Queue.MaxRetries,
		BackoffBase:     cfg.BackoffBase(),
		BackoffMax:      cfg.BackoffMax(),
		MaxPayloadBytes: cfg.Queue.MaxPayloadBytes,
		MaxItems:        cfg.Queue.MaxItems,
	}
}

// Backoff returns the delay before attempt retryCount+1: base doubled per
// prior failure, capped at BackoffMax.
func (p Policy) Backoff(retryCount int) time.Duration {
	if retryCount < 1 || p.BackoffBase <= 0 {
		return 0
	}
	delay := p.BackoffBase
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if p.BackoffMax > 0 && delay >= p.BackoffMax {
			return p.BackoffMax
		}
	}
	if p.BackoffMax > 0 && delay > p.BackoffMax {
		return p.BackoffMax
	}
	return delay
}
