package escalate

import "time"

// Scheduler abstracts delayed task execution so retry/backoff behavior
// is testable under virtual time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler runs tasks on real timers.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
