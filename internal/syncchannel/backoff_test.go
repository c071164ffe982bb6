package syncchannel

import (
	"testing"
	"time"

	"clusterdash/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestScheduleGrowsAndCaps(t *testing.T) {
	s := Backoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
	}.NewSchedule()

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, s.Next(), "attempt %d", i+1)
	}
}

func TestScheduleReset(t *testing.T) {
	s := Backoff{InitialDelay: 10 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}.NewSchedule()
	s.Next()
	s.Next()
	s.Reset()
	assert.Equal(t, 10*time.Millisecond, s.Next())
}

func TestScheduleImmediate(t *testing.T) {
	b := Immediate()
	s := b.NewSchedule()
	for attempt := 0; attempt < 5; attempt++ {
		assert.Zero(t, s.Next())
	}
	assert.False(t, b.ShouldSuspend(1000))
}

func TestScheduleMultiplierBelowOneIsFlat(t *testing.T) {
	s := Backoff{InitialDelay: 50 * time.Millisecond}.NewSchedule()
	for attempt := 0; attempt < 7; attempt++ {
		assert.Equal(t, 50*time.Millisecond, s.Next())
	}
}

func TestScheduleZeroMaxDelayUsesDefaultCap(t *testing.T) {
	s := Backoff{InitialDelay: 30 * time.Second, Multiplier: 10}.NewSchedule()
	s.Next()
	assert.Equal(t, backoff.DefaultMaxInterval, s.Next())
}

func TestScheduleJitterBounds(t *testing.T) {
	b := Backoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}

	for i := 0; i < 200; i++ {
		s := b.NewSchedule()
		first := s.Next()
		second := s.Next()
		assert.GreaterOrEqual(t, first, 80*time.Millisecond)
		assert.LessOrEqual(t, first, 121*time.Millisecond)
		assert.GreaterOrEqual(t, second, 160*time.Millisecond)
		assert.LessOrEqual(t, second, 241*time.Millisecond)
	}
}

func TestScheduleJitterNeverExceedsMax(t *testing.T) {
	b := Backoff{
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Jitter:       0.5,
	}
	for i := 0; i < 100; i++ {
		s := b.NewSchedule()
		s.Next()
		assert.LessOrEqual(t, s.Next(), time.Second)
	}
}

func TestBackoffShouldSuspend(t *testing.T) {
	b := Backoff{MaxConsecutiveFailures: 3}
	assert.False(t, b.ShouldSuspend(2))
	assert.True(t, b.ShouldSuspend(3))
	assert.True(t, b.ShouldSuspend(4))
}

func TestBackoffFromConfig(t *testing.T) {
	cfg := config.GetDefaultConfig().Channel.Reconnect
	b := BackoffFromConfig(cfg)
	assert.Equal(t, cfg.InitialDelay, b.InitialDelay)
	assert.Equal(t, cfg.MaxDelay, b.MaxDelay)
	assert.Equal(t, cfg.Cooldown, b.Cooldown)
	assert.Equal(t, cfg.MaxConsecutiveFailures, b.MaxConsecutiveFailures)
}
