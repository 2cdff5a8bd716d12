// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// Data entry magics.
const (
	DataMagic           = "CUBEX.DATA"
	CompressedDataMagic = "ZCUBEX.DATA"
)

// DataWriter receives the rows of one metric in enumeration order.
type DataWriter interface {
	// WriteRow appends one encoded row.
	WriteRow(row []byte) error
	// Close completes the entry. It fails if fewer rows than announced were
	// written.
	Close() error
	// Abort releases resources without completing the entry.
	Abort()
}

// NewDataWriter returns a writer for the data entry of a metric with nrows
// rows of rowSize bytes each.
func NewDataWriter(a *Archive, name string, nrows, rowSize int, compressed bool) (DataWriter, error) {
	if compressed {
		s, err := a.NewSpool()
		if err != nil {
			return nil, err
		}
		zw, err := zlib.NewWriterLevel(io.Discard, zlib.BestSpeed)
		if err != nil {
			s.Discard()
			return nil, errors.Wrap(err, "creating row compressor")
		}
		return &compressedDataWriter{
			a: a, name: name, nrows: nrows, rowSize: rowSize,
			spool: s, zw: zw,
			subIndex: make([]uint64, 0, 3*nrows),
		}, nil
	}
	size := int64(len(DataMagic)) + int64(nrows)*int64(rowSize)
	w, err := a.Begin(name, size)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, DataMagic); err != nil {
		return nil, errors.Wrapf(err, "writing %s", name)
	}
	return &plainDataWriter{w: w, name: name, nrows: nrows, rowSize: rowSize}, nil
}

// plainDataWriter streams rows straight into the archive.
type plainDataWriter struct {
	w       io.Writer
	name    string
	nrows   int
	rowSize int
	written int
}

func (d *plainDataWriter) WriteRow(row []byte) error {
	if len(row) != d.rowSize {
		return errors.AssertionFailedf("row of %d bytes, expected %d", len(row), d.rowSize)
	}
	if d.written >= d.nrows {
		return errors.AssertionFailedf("%s: more than %d rows", d.name, d.nrows)
	}
	if _, err := d.w.Write(row); err != nil {
		return errors.Wrapf(err, "writing %s", d.name)
	}
	d.written++
	return nil
}

func (d *plainDataWriter) Close() error {
	if d.written != d.nrows {
		return errors.AssertionFailedf("%s: wrote %d of %d rows", d.name, d.written, d.nrows)
	}
	return nil
}

func (d *plainDataWriter) Abort() {}

// compressedDataWriter compresses every row separately and stages the
// payload in a spool, since the entry size is only known at the end.
type compressedDataWriter struct {
	a        *Archive
	name     string
	nrows    int
	rowSize  int
	spool    *Spool
	zw       *zlib.Writer
	buf      bytes.Buffer
	subIndex []uint64
}

func (d *compressedDataWriter) WriteRow(row []byte) error {
	if len(row) != d.rowSize {
		return errors.AssertionFailedf("row of %d bytes, expected %d", len(row), d.rowSize)
	}
	idx := len(d.subIndex) / 3
	if idx >= d.nrows {
		return errors.AssertionFailedf("%s: more than %d rows", d.name, d.nrows)
	}
	d.buf.Reset()
	d.zw.Reset(&d.buf)
	if _, err := d.zw.Write(row); err != nil {
		return errors.Wrapf(err, "compressing row %d of %s", idx, d.name)
	}
	if err := d.zw.Close(); err != nil {
		return errors.Wrapf(err, "compressing row %d of %s", idx, d.name)
	}
	start := uint64(d.spool.Size())
	if _, err := d.spool.Write(d.buf.Bytes()); err != nil {
		return errors.Wrapf(err, "spooling row %d of %s", idx, d.name)
	}
	d.subIndex = append(d.subIndex, uint64(idx)*uint64(d.rowSize), start, uint64(d.buf.Len()))
	return nil
}

func (d *compressedDataWriter) Close() error {
	if n := len(d.subIndex) / 3; n != d.nrows {
		d.spool.Discard()
		return errors.AssertionFailedf("%s: wrote %d of %d rows", d.name, n, d.nrows)
	}
	prefix := make([]byte, 0, len(CompressedDataMagic)+8+8*len(d.subIndex))
	prefix = append(prefix, CompressedDataMagic...)
	prefix = binary.LittleEndian.AppendUint64(prefix, uint64(d.nrows))
	for _, v := range d.subIndex {
		prefix = binary.LittleEndian.AppendUint64(prefix, v)
	}
	return d.a.WriteSpool(d.name, prefix, d.spool)
}

func (d *compressedDataWriter) Abort() { d.spool.Discard() }
