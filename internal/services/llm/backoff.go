package llm

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff waits retry×base before the next attempt, capped at max, and
// stops once maxAttempts attempts have been made.
type linearBackOff struct {
	base        time.Duration
	max         time.Duration
	maxAttempts int
	retries     int
}

func newLinearBackOff(base, max time.Duration, maxAttempts int) *linearBackOff {
	if base < 0 {
		base = 0
	}
	return &linearBackOff{base: base, max: max, maxAttempts: maxAttempts}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	if b.retries+1 >= b.maxAttempts {
		return backoff.Stop
	}
	b.retries++
	delay := time.Duration(b.retries) * b.base
	if b.max > 0 && delay > b.max {
		delay = b.max
	}
	return delay
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}
