package types

import "time"

// Clock supplies timestamps for audit records. Tests substitute a fixed
// implementation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
