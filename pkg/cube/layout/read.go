// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/pgzip"
)

// Entry is one member of a cube archive.
type Entry struct {
	Header *tar.Header
	Data   []byte
}

// ReadArchive loads every entry of the archive at path.
func ReadArchive(fs vfs.FS, path string) ([]Entry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	var entries []Entry
	tr := tar.NewReader(f)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s from %s", h.Name, path)
		}
		entries = append(entries, Entry{Header: h, Data: data})
	}
}

// DecodeData returns the rows stored in a data entry, decompressing them if
// needed.
func DecodeData(b []byte, rowSize int) ([][]byte, error) {
	switch {
	case bytes.HasPrefix(b, []byte(CompressedDataMagic)):
		return decodeCompressedData(b[len(CompressedDataMagic):], rowSize)
	case bytes.HasPrefix(b, []byte(DataMagic)):
		b = b[len(DataMagic):]
		if rowSize <= 0 || len(b)%rowSize != 0 {
			return nil, errors.Newf("%d data bytes are not a multiple of row size %d", len(b), rowSize)
		}
		rows := make([][]byte, 0, len(b)/rowSize)
		for len(b) > 0 {
			rows = append(rows, b[:rowSize])
			b = b[rowSize:]
		}
		return rows, nil
	}
	return nil, errors.New("missing data magic")
}

func decodeCompressedData(b []byte, rowSize int) ([][]byte, error) {
	if len(b) < 8 {
		return nil, errors.New("truncated compressed data header")
	}
	n := binary.LittleEndian.Uint64(b)
	b = b[8:]
	if uint64(len(b)) < 24*n {
		return nil, errors.Newf("sub-index of %d rows truncated", n)
	}
	sub, payload := b[:24*n], b[24*n:]
	rows := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		e := sub[24*i:]
		start, size := binary.LittleEndian.Uint64(e[8:]), binary.LittleEndian.Uint64(e[16:])
		if binary.LittleEndian.Uint64(e) != i*uint64(rowSize) {
			return nil, errors.Newf("row %d has uncompressed offset %d", i, binary.LittleEndian.Uint64(e))
		}
		if start+size > uint64(len(payload)) {
			return nil, errors.Newf("row %d exceeds payload", i)
		}
		zr, err := zlib.NewReader(bytes.NewReader(payload[start : start+size]))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		row, err := io.ReadAll(zr)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		if len(row) != rowSize {
			return nil, errors.Newf("row %d inflates to %d bytes, expected %d", i, len(row), rowSize)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeAnchor returns the XML text of an anchor entry, inflating it when it
// is gzip-compressed.
func DecodeAnchor(b []byte) ([]byte, error) {
	if len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		return b, nil
	}
	zr, err := pgzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "opening compressed anchor")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	return out, errors.Wrap(err, "inflating anchor")
}
