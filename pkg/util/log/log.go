// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements context-aware leveled logging. Every entry carries
// the log tags found in its context (see github.com/cockroachdb/logtags), and
// arguments are formatted through github.com/cockroachdb/redact so that
// unsafe values can be stripped or marked in the output.
package log

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/redact"
)

type loggerT struct {
	verbosity  atomic.Int32
	redactable atomic.Bool

	mu struct {
		sync.Mutex
		w   io.Writer
		now func() time.Time
	}
}

var logging = func() *loggerT {
	l := &loggerT{}
	l.mu.w = os.Stderr
	l.mu.now = time.Now
	return l
}()

// SetOutput redirects all log output to w and returns a function that
// restores the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.w
	logging.mu.w = w
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.w = prev
	}
}

// SetClock overrides the clock used to timestamp entries. Used in tests.
func SetClock(now func() time.Time) (restore func()) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.now
	logging.mu.now = now
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.now = prev
	}
}

// SetVerbosity sets the global verbosity threshold for V and VEventf.
func SetVerbosity(level Level) {
	logging.verbosity.Store(int32(level))
}

// SetRedactable controls whether redaction markers are kept in the output.
// When false (the default) the markers are stripped.
func SetRedactable(v bool) {
	logging.redactable.Store(v)
}

// V returns true if the verbosity threshold is at least level.
func V(level Level) bool {
	return Level(logging.verbosity.Load()) >= level
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityInfo, format, args...)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityWarning, format, args...)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, SeverityError, format, args...)
}

// VEventf logs to the INFO severity if the verbosity is at least level.
func VEventf(ctx context.Context, level Level, format string, args ...interface{}) {
	if !V(level) {
		return
	}
	logf(ctx, SeverityInfo, format, args...)
}

func logf(ctx context.Context, sev Severity, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...)
	logging.mu.Lock()
	defer logging.mu.Unlock()
	if logging.mu.w == nil {
		return
	}
	entry := formatEntry(logging.mu.now(), sev, ctx, msg, logging.redactable.Load())
	_, _ = logging.mu.w.Write(entry)
}
