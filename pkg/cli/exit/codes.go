// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exit

// Codes that are common to all commands follow.

// Success (0) represents a normal process termination.
func Success() Code { return Code{0} }

// UnspecifiedError (1) indicates the process has terminated with an
// error condition. The specific cause of the error can be found in
// the logging output.
func UnspecifiedError() Code { return Code{1} }

// Interrupted (3) indicates the process was interrupted with Ctrl+C /
// SIGINT.
func Interrupted() Code { return Code{3} }

// CommandLineFlagError (4) indicates there was an error in the
// command-line parameters.
func CommandLineFlagError() Code { return Code{4} }

// Codes that are specific to single commands follow. Command-specific
// exit codes are allocated down from 125.

// 'gen' exit codes.

// InvalidGeneratorConfig indicates that the generator configuration file
// could not be loaded or failed validation.
func InvalidGeneratorConfig() Code { return Code{125} }
