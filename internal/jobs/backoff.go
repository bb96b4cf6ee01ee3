package jobs

import "time"

// Backoff is an exponential retry schedule with an attempt ceiling.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the wait before the next try after the given number of failed attempts.
func (b Backoff) Delay(attempts int) time.Duration {
	if b.Base <= 0 || attempts < 1 {
		return 0
	}
	delay := b.Base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// Exhausted reports whether attempts reached the ceiling. A zero ceiling never exhausts.
func (b Backoff) Exhausted(attempts int) bool {
	return b.MaxAttempts > 0 && attempts >= b.MaxAttempts
}
