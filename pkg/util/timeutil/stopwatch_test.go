// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopWatch(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := NewTestStopWatch(func() time.Time { return now })

	w.Start()
	now = now.Add(3 * time.Second)
	require.Equal(t, 3*time.Second, w.Elapsed())
	w.Stop()

	now = now.Add(time.Hour)
	require.Equal(t, 3*time.Second, w.Elapsed())

	w.Start()
	w.Start()
	now = now.Add(2 * time.Second)
	w.Stop()
	w.Stop()
	require.Equal(t, 5*time.Second, w.Elapsed())
}

func TestFixedClock(t *testing.T) {
	ts := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	clock := FixedClock(ts)
	require.Equal(t, ts, clock())
	require.Equal(t, ts, clock())
}
