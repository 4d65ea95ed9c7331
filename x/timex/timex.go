package timex

import "time"

// Clock returns the current time. Components take one so tests can step time.
type Clock func() time.Time

// OrNow returns c, or time.Now when c is nil.
func (c Clock) OrNow() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Elapsed returns to-from, treating a zero from as "long ago".
func Elapsed(from, to time.Time) time.Duration {
	if from.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return to.Sub(from)
}
