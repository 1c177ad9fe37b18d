// Transient export status with automatic self-clearing
package export

import (
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusCopied
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCopied:
		return "copied"
	case StatusFailed:
		return "copy failed"
	default:
		return ""
	}
}

// Reporter holds the current export status. A reported status clears back to
// idle after the display duration; overlapping reports restart the clock.
type Reporter struct {
	mu       sync.Mutex
	status   Status
	duration time.Duration
	timer    *time.Timer
	onChange func(Status)
}

func NewReporter(duration time.Duration) *Reporter {
	if duration <= 0 {
		duration = 2 * time.Second
	}
	return &Reporter{duration: duration}
}

// SetOnChange installs the status observer. It fires on every transition,
// including the self-clear back to idle, and may run on a timer goroutine.
func (r *Reporter) SetOnChange(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Report sets the status and schedules the clear.
func (r *Reporter) Report(s Status) {
	r.mu.Lock()
	r.status = s
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.duration, r.clear)
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

func (r *Reporter) clear() {
	r.mu.Lock()
	if r.status == StatusIdle {
		r.mu.Unlock()
		return
	}
	r.status = StatusIdle
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(StatusIdle)
	}
}

// Current returns the status as of now.
func (r *Reporter) Current() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Stop cancels a pending clear.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}
