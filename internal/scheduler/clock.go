package scheduler

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// call stopped it, false if it already ran or was stopped.
	Stop() bool
}

// Clock is the time source of every scheduled task.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
