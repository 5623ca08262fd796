package utils

import "time"

// Clock abstracts wall time so schedulers and quotas can be driven in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
