package service

import (
	"fmt"
	"sync"
	"time"
)

// SweepReport tracks the result of one effectiveness sweep
type SweepReport struct {
	mu              sync.RWMutex
	StartTime       time.Time
	Duration        time.Duration
	Examined        int
	Measured        int
	NotReady        int
	AlreadyMeasured int
	Errors          int
}

// NewSweepReport creates a new sweep report
func NewSweepReport() *SweepReport {
	return &SweepReport{StartTime: time.Now()}
}

// RecordMeasured increments the measured count
func (r *SweepReport) RecordMeasured() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Examined++
	r.Measured++
}

// RecordNotReady increments the count of revisions still collecting outcomes
func (r *SweepReport) RecordNotReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Examined++
	r.NotReady++
}

// RecordAlreadyMeasured increments the count of revisions scored elsewhere
func (r *SweepReport) RecordAlreadyMeasured() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Examined++
	r.AlreadyMeasured++
}

// RecordError increments the error count
func (r *SweepReport) RecordError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Examined++
	r.Errors++
}

// Finish stamps the sweep duration
func (r *SweepReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(r.StartTime)
}

// String returns a formatted string representation of the report
func (r *SweepReport) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return fmt.Sprintf(
		"SweepReport{Examined=%d, Measured=%d, NotReady=%d, AlreadyMeasured=%d, Errors=%d, Duration=%v}",
		r.Examined,
		r.Measured,
		r.NotReady,
		r.AlreadyMeasured,
		r.Errors,
		r.Duration,
	)
}
