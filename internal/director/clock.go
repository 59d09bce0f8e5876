package director

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules frame callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock runs callbacks on real timers.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
