// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package humanizeutil

import "time"

// durationSteps lists, for each upper bound, the unit a duration below it is
// rounded to.
var durationSteps = []struct {
	below, unit time.Duration
}{
	{time.Millisecond, time.Microsecond},
	{time.Second, time.Millisecond},
	{time.Minute, 100 * time.Millisecond},
}

// Duration renders d for progress and summary log lines, e.g. "850µs",
// "12ms", "3.4s" or "2m5s". The granularity is never finer than a
// microsecond.
func Duration(d time.Duration) string {
	d = d.Round(time.Microsecond)
	if d == 0 {
		return "0µs"
	}
	abs := d
	if abs < 0 {
		abs = -abs
	}
	for _, s := range durationSteps {
		if abs < s.below {
			return d.Round(s.unit).String()
		}
	}
	return d.Round(time.Second).String()
}
