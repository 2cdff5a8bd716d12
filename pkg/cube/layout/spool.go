// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"bufio"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
)

// Spool stages the payload of an archive entry in a temporary file until its
// size is known.
type Spool struct {
	fs   vfs.FS
	path string
	f    vfs.File
	bw   *bufio.Writer
	size int64
}

// Write implements io.Writer.
func (s *Spool) Write(p []byte) (int, error) {
	if s.f == nil {
		return 0, errors.Newf("spool %s is sealed", s.path)
	}
	if s.bw == nil {
		s.bw = bufio.NewWriterSize(s.f, 64<<10)
	}
	n, err := s.bw.Write(p)
	s.size += int64(n)
	return n, err
}

// Size returns the number of bytes spooled.
func (s *Spool) Size() int64 { return s.size }

func (s *Spool) seal() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if s.bw != nil {
		if err := s.bw.Flush(); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "flushing spool %s", s.path)
		}
	}
	return errors.Wrapf(f.Close(), "closing spool %s", s.path)
}

// Discard removes the spool file.
func (s *Spool) Discard() {
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	_ = s.fs.Remove(s.path)
}
