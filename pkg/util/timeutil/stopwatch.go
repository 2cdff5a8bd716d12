// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import "time"

// StopWatch accumulates wall time over any number of Start/Stop intervals.
// It is not safe for concurrent use. The zero value is ready to use.
type StopWatch struct {
	started   bool
	startedAt time.Time
	elapsed   time.Duration
	// now is overridden in tests.
	now func() time.Time
}

// NewTestStopWatch returns a StopWatch reading time from now.
func NewTestStopWatch(now func() time.Time) *StopWatch {
	return &StopWatch{now: now}
}

func (w *StopWatch) timeNow() time.Time {
	if w.now != nil {
		return w.now()
	}
	return Now()
}

// Start starts the stop watch if it isn't running already.
func (w *StopWatch) Start() {
	if !w.started {
		w.started = true
		w.startedAt = w.timeNow()
	}
}

// Stop stops the stop watch if it is running and adds the interval to the
// accumulated time.
func (w *StopWatch) Stop() {
	if w.started {
		w.started = false
		w.elapsed += w.timeNow().Sub(w.startedAt)
	}
}

// Elapsed returns the accumulated time, including the current interval if
// the stop watch is running.
func (w *StopWatch) Elapsed() time.Duration {
	if w.started {
		return w.elapsed + w.timeNow().Sub(w.startedAt)
	}
	return w.elapsed
}
