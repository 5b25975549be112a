package store

import "time"

// Clock abstracts wall time so token-lifetime math and id generation stay
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
