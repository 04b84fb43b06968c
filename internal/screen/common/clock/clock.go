package clock

import "time"

// Clock supplies the current instant. Audit entries are stamped through it
// so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns CurrentTime until advanced. Tick, when non-zero, is added
// after every Now call so successive audit entries get distinct timestamps.
type MockClock struct {
	CurrentTime time.Time
	Tick        time.Duration
}

func (c *MockClock) Now() time.Time {
	now := c.CurrentTime
	c.CurrentTime = c.CurrentTime.Add(c.Tick)
	return now
}

func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
