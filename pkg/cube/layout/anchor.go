// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/pgzip"
)

// WriteAnchor stages the output of fn in a spool and stores it as the anchor
// entry, gzip-compressed if requested.
func (a *Archive) WriteAnchor(compressed bool, fn func(io.Writer) error) error {
	s, err := a.NewSpool()
	if err != nil {
		return err
	}
	var w io.Writer = s
	var zw *pgzip.Writer
	if compressed {
		zw = pgzip.NewWriter(s)
		w = zw
	}
	bw := bufio.NewWriter(w)
	if err := fn(bw); err != nil {
		s.Discard()
		return err
	}
	if err := bw.Flush(); err != nil {
		s.Discard()
		return errors.Wrap(err, "flushing anchor")
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			s.Discard()
			return errors.Wrap(err, "compressing anchor")
		}
	}
	return a.WriteSpool(AnchorName, nil, s)
}
