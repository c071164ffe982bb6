package syncchannel

import (
	"time"

	"clusterdash/internal/config"

	"github.com/cenkalti/backoff/v4"
)

// Backoff decides how long a closed channel waits before dialing again.
type Backoff struct {
	InitialDelay time.Duration
	// MaxDelay caps every delay, jitter included. Zero uses the library
	// default of one minute.
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
	// MaxConsecutiveFailures suspends the channel for Cooldown after that
	// many failed dials in a row. Zero disables suspension.
	MaxConsecutiveFailures int
	Cooldown               time.Duration
}

// BackoffFromConfig maps the reconnect settings onto a Backoff.
func BackoffFromConfig(cfg config.ReconnectConfig) Backoff {
	return Backoff{
		InitialDelay:           cfg.InitialDelay,
		MaxDelay:               cfg.MaxDelay,
		Multiplier:             cfg.Multiplier,
		Jitter:                 cfg.Jitter,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		Cooldown:               cfg.Cooldown,
	}
}

// Immediate reconnects with no delay and never suspends.
func Immediate() Backoff {
	return Backoff{}
}

// ShouldSuspend reports whether failures consecutive failed dials trip the breaker.
func (b Backoff) ShouldSuspend(failures int) bool {
	return b.MaxConsecutiveFailures > 0 && failures >= b.MaxConsecutiveFailures
}

// NewSchedule starts a fresh sequence of reconnect delays.
func (b Backoff) NewSchedule() *Schedule {
	if b.InitialDelay <= 0 {
		return &Schedule{policy: &backoff.ZeroBackOff{}}
	}

	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = backoff.DefaultMaxInterval
	}
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     b.InitialDelay,
		RandomizationFactor: min(max(b.Jitter, 0), 1),
		Multiplier:          max(b.Multiplier, 1),
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return &Schedule{policy: exp, max: maxDelay}
}

// Schedule yields the delays of consecutive reconnect attempts.
type Schedule struct {
	policy backoff.BackOff
	max    time.Duration
}

// Next returns the wait before the next attempt.
func (s *Schedule) Next() time.Duration {
	d := s.policy.NextBackOff()
	if d < 0 {
		return 0
	}
	if s.max > 0 && d > s.max {
		d = s.max
	}
	return d
}

// Reset starts the sequence over, after a successful dial or a cooldown.
func (s *Schedule) Reset() {
	s.policy.Reset()
}
