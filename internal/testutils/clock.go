// Package testutils provides testing helpers shared across packages
package testutils

import (
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/goretry/pkg/types"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper wraps quartz.Mock to implement the types.Clock interface
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper creates a new ClockWrapper
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

// Now returns the current mock time
func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

// Since returns the mock time elapsed since t
func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

// NewTimer creates a new mock-backed Timer
func (c *ClockWrapper) NewTimer(d time.Duration) types.Timer {
	return &timerWrapper{timer: c.Mock.NewTimer(d)}
}

// timerWrapper wraps a quartz timer
type timerWrapper struct {
	timer *quartz.Timer
}

func (t *timerWrapper) C() <-chan time.Time {
	return t.timer.C
}

func (t *timerWrapper) Stop() bool {
	return t.timer.Stop()
}
