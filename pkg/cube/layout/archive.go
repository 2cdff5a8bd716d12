// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package layout implements the on-disk container of a cube report: a tar
// archive holding the anchor, one data and one index entry per metric, and
// any number of named miscellaneous entries.
package layout

import (
	"archive/tar"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
)

// Extension is the file name extension of a cube archive.
const Extension = ".cubex"

// AnchorName is the archive entry holding the XML metadata.
const AnchorName = "anchor.xml"

// DataName returns the archive entry name of a metric's data.
func DataName(metricID int) string { return itoa(metricID) + ".data" }

// IndexName returns the archive entry name of a metric's index.
func IndexName(metricID int) string { return itoa(metricID) + ".index" }

// ArchiveOptions configures the tar headers written by an Archive.
type ArchiveOptions struct {
	// Owner is the user name recorded for every entry. Defaults to $USER,
	// then $LOGNAME, then "nouser".
	Owner string
	// Group is the group name recorded for every entry. Defaults to "users".
	Group string
	// Now stamps entries. Defaults to time.Now.
	Now func() time.Time
}

func (o *ArchiveOptions) ensureDefaults() {
	if o.Owner == "" {
		o.Owner = DefaultOwner()
	}
	if o.Group == "" {
		o.Group = "users"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// DefaultOwner returns the user name of the current process as found in the
// environment.
func DefaultOwner() string {
	for _, env := range []string{"USER", "LOGNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "nouser"
}

// Archive writes entries sequentially to a tar file. Only one entry may be
// open at a time. Entries of unknown size are staged through a Spool.
type Archive struct {
	fs     vfs.FS
	path   string
	opts   ArchiveOptions
	f      vfs.File
	tw     *tar.Writer
	cw     *countingWriter
	spools int
	closed bool
}

// CreateArchive creates (truncating) the tar file at path.
func CreateArchive(fs vfs.FS, path string, opts ArchiveOptions) (*Archive, error) {
	opts.ensureDefaults()
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating archive %s", path)
	}
	cw := &countingWriter{w: f}
	return &Archive{
		fs:   fs,
		path: path,
		opts: opts,
		f:    f,
		cw:   cw,
		tw:   tar.NewWriter(cw),
	}, nil
}

// Path returns the location of the archive in its filesystem.
func (a *Archive) Path() string { return a.path }

func (a *Archive) header(name string, size int64) *tar.Header {
	// The writer chooses USTAR, or PAX for entries too large for the octal
	// size field.
	return &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     0600,
		Uname:    a.opts.Owner,
		Gname:    a.opts.Group,
		ModTime:  a.opts.Now().Truncate(time.Second),
	}
}

// Begin starts an entry of exactly size bytes and returns the writer for its
// payload. The entry must be completely written before the next one begins.
func (a *Archive) Begin(name string, size int64) (io.Writer, error) {
	if a.closed {
		return nil, errors.Newf("archive %s is closed", a.path)
	}
	if err := a.tw.WriteHeader(a.header(name, size)); err != nil {
		return nil, errors.Wrapf(err, "writing header of %s", name)
	}
	return a.tw, nil
}

// WriteFile writes a complete entry.
func (a *Archive) WriteFile(name string, data []byte) error {
	w, err := a.Begin(name, int64(len(data)))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

// NewSpool creates a temporary file next to the archive for an entry whose
// size is not known in advance.
func (a *Archive) NewSpool() (*Spool, error) {
	a.spools++
	path := a.path + ".spool" + itoa(a.spools)
	f, err := a.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating spool %s", path)
	}
	return &Spool{fs: a.fs, path: path, f: f}, nil
}

// WriteSpool appends prefix followed by the spooled bytes as one entry and
// removes the spool.
func (a *Archive) WriteSpool(name string, prefix []byte, s *Spool) error {
	if err := s.seal(); err != nil {
		return err
	}
	defer s.Discard()
	w, err := a.Begin(name, int64(len(prefix))+s.size)
	if err != nil {
		return err
	}
	if _, err := w.Write(prefix); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	r, err := a.fs.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "reopening spool %s", s.path)
	}
	defer r.Close()
	if n, err := io.Copy(w, r); err != nil {
		return errors.Wrapf(err, "copying spool into %s", name)
	} else if n != s.size {
		return errors.AssertionFailedf("spool %s shrank from %d to %d bytes", s.path, s.size, n)
	}
	return nil
}

// Size returns the number of bytes written to the archive file so far.
func (a *Archive) Size() int64 { return a.cw.n }

// Close finishes the archive with the two zero blocks and syncs it.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.tw.Close(); err != nil {
		_ = a.f.Close()
		return errors.Wrapf(err, "closing archive %s", a.path)
	}
	if err := a.f.Sync(); err != nil {
		_ = a.f.Close()
		return errors.Wrapf(err, "syncing archive %s", a.path)
	}
	return errors.Wrapf(a.f.Close(), "closing archive %s", a.path)
}

// Abort closes the archive without completing it.
func (a *Archive) Abort() {
	if !a.closed {
		a.closed = true
		_ = a.f.Close()
	}
}

// countingWriter hides the vfs.File's other methods from tar.Writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
