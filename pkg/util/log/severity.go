// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

// Severity identifies the importance of a log entry.
type Severity int32

// Severities in increasing order of importance.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// Char returns the one-letter prefix used for the severity in log lines.
func (s Severity) Char() byte {
	switch s {
	case SeverityWarning:
		return 'W'
	case SeverityError:
		return 'E'
	default:
		return 'I'
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Level is a verbosity level for VEventf and V.
type Level int32
