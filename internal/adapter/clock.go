package adapter

import "time"

// Clock defines an interface for time operations to enable mocking.
// Ledger timestamps are nanoseconds since the epoch.
type Clock interface {
	Now() time.Time
	NowNano() int64
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewClock creates a new real clock implementation
func NewClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) NowNano() int64 {
	return time.Now().UnixNano()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// FixedClock is a Clock pinned to one instant, for tests
type FixedClock struct {
	Instant time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.Instant
}

func (c *FixedClock) NowNano() int64 {
	return c.Instant.UnixNano()
}

func (c *FixedClock) Since(t time.Time) time.Duration {
	return c.Instant.Sub(t)
}

func (c *FixedClock) Sleep(time.Duration) {}
