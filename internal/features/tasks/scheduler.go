package tasks

import "time"

// Scheduler runs f once after d. stop cancels it and reports whether it was still pending.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// RealScheduler is backed by time.AfterFunc.
var RealScheduler Scheduler = timeScheduler{}
