// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/errors"
)

// Contract violations. Errors returned by this package wrap one of these, so
// callers can test for them with errors.Is.
var (
	ErrLocked             = errors.New("cube is locked for writing")
	ErrFinalized          = errors.New("cube is finalized")
	ErrInvalidReference   = errors.New("invalid entity reference")
	ErrInvalidMetric      = errors.New("invalid metric definition")
	ErrOutOfOrder         = errors.New("row written out of order")
	ErrInterleavedMetric  = errors.New("another metric is being written")
	ErrPastEnd            = errors.New("row written past the end of the metric")
	ErrRowWidth           = errors.New("row has the wrong number of values")
	ErrMetricStarted      = errors.New("metric has already started writing")
	ErrMetricInProgress   = errors.New("a metric is being written")
	ErrMetricPoisoned     = errors.New("metric failed to persist a previous row")
	ErrSystemTreeProtocol = errors.New("system tree protocol violation")
	ErrReservedName       = errors.New("reserved archive entry name")

	// ErrIncompatibleType and ErrValueOutOfRange are raised by the value casts.
	ErrIncompatibleType = cubetype.ErrIncompatibleType
	ErrValueOutOfRange  = cubetype.ErrValueOutOfRange
)
