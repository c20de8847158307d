// Package backoff provides retry delay strategies for action retries.
// Strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n. Attempt 1 is the first
// retry after the initial failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Constant returns the same delay for every attempt.
type Constant struct {
	Interval time.Duration
}

func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Exponential doubles the delay each attempt, capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	// Cap in float64 before converting: large attempts overflow int64 into a
	// negative duration otherwise.
	delay := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && delay > float64(e.Max) {
		return e.Max
	}

	return time.Duration(delay)
}

// ExponentialWithJitter draws a random delay in [0, min(Initial*2^(attempt-1), Max)],
// spreading out retries that would otherwise fire in lockstep.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}

	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter does not need crypto rand
}

// Default is the strategy used for action retries when none is configured:
// exponential starting at 250ms, capped at 10s.
func Default() Strategy {
	return NewExponential(250*time.Millisecond, 10*time.Second)
}
