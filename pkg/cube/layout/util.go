// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }
