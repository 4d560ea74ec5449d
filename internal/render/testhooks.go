package render

import "time"

// clock is the time source for descriptor tokens and overlay variables.
var clock = time.Now

// SetClockForTests overrides the render clock during tests.
func SetClockForTests(fn func() time.Time) func() {
	previous := clock
	clock = fn
	return func() {
		clock = previous
	}
}
