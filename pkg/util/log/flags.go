// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
)

// verbosityValue adapts the global verbosity to a pflag.Value.
type verbosityValue struct{}

var _ pflag.Value = verbosityValue{}

// String implements the pflag.Value interface.
func (verbosityValue) String() string {
	return strconv.Itoa(int(logging.verbosity.Load()))
}

// Set implements the pflag.Value interface.
func (verbosityValue) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "invalid verbosity %q", s)
	}
	if v < 0 {
		return errors.Newf("verbosity must be non-negative, got %d", v)
	}
	SetVerbosity(Level(v))
	return nil
}

// Type implements the pflag.Value interface.
func (verbosityValue) Type() string { return "level" }

// AddFlags registers the logging flags on the given flag set.
func AddFlags(fs *pflag.FlagSet) {
	fs.VarP(verbosityValue{}, "verbosity", "v", "log verbosity level for VEventf messages")
	fs.BoolVar(&redactableFlag, "redactable-logs", false,
		"keep redaction markers around unsafe values in log output")
}

var redactableFlag bool

// ApplyFlags applies flag values that are not stored directly.
func ApplyFlags() {
	SetRedactable(redactableFlag)
}
