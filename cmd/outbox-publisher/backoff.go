package main

import (
	"math/rand/v2"
	"time"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// backoff doubles the wait after each failed batch, up to maxBackoff.
type backoff struct {
	base    time.Duration
	current time.Duration
}

func newBackoff(base time.Duration) *backoff {
	if base <= 0 {
		base = defaultPollInterval
	}
	return &backoff{base: base, current: base}
}

func (b *backoff) fail() time.Duration {
	b.current = min(b.current*2, maxBackoff)
	return withJitter(b.current)
}

func (b *backoff) idle() time.Duration {
	return withJitter(b.base)
}

func (b *backoff) reset() {
	b.current = b.base
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
