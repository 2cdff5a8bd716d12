// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// IndexMagic starts every index entry.
const IndexMagic = "CUBEX.INDEX"

// IndexFormat describes how rows map to cnodes.
type IndexFormat uint8

// Index formats. Writers only produce DENSE (one row per enumerated cnode)
// and SPARSE (rows for the listed enumeration positions only).
const (
	IndexNone      IndexFormat = 0
	IndexSparse    IndexFormat = 1
	IndexBitvector IndexFormat = 2
	IndexDense     IndexFormat = 3
)

func (f IndexFormat) String() string {
	switch f {
	case IndexNone:
		return "NONE"
	case IndexSparse:
		return "SPARSE"
	case IndexBitvector:
		return "BITVECTOR"
	case IndexDense:
		return "DENSE"
	}
	return "UNKNOWN"
}

const (
	indexEndianMarker uint32 = 1
	indexVersion      uint16 = 0
)

// EncodeIndex returns the index entry for the given format. positions lists
// enumeration positions and is only written for SPARSE.
func EncodeIndex(format IndexFormat, positions []uint32) []byte {
	buf := make([]byte, 0, len(IndexMagic)+4+2+1+4+4*len(positions))
	buf = append(buf, IndexMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, indexEndianMarker)
	buf = binary.LittleEndian.AppendUint16(buf, indexVersion)
	buf = append(buf, byte(format))
	if format == IndexSparse {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(positions)))
		for _, p := range positions {
			buf = binary.LittleEndian.AppendUint32(buf, p)
		}
	}
	return buf
}

// DecodeIndex parses an index entry.
func DecodeIndex(b []byte) (IndexFormat, []uint32, error) {
	if !bytes.HasPrefix(b, []byte(IndexMagic)) {
		return 0, nil, errors.New("missing index magic")
	}
	b = b[len(IndexMagic):]
	if len(b) < 7 {
		return 0, nil, errors.New("truncated index header")
	}
	if e := binary.LittleEndian.Uint32(b); e != indexEndianMarker {
		return 0, nil, errors.Newf("unexpected endianness marker %#x", e)
	}
	format := IndexFormat(b[6])
	b = b[7:]
	if format != IndexSparse {
		return format, nil, nil
	}
	if len(b) < 4 {
		return 0, nil, errors.New("truncated sparse index")
	}
	n := binary.LittleEndian.Uint32(b)
	b = b[4:]
	if uint64(len(b)) != 4*uint64(n) {
		return 0, nil, errors.Newf("sparse index lists %d positions in %d bytes", n, len(b))
	}
	positions := make([]uint32, n)
	for i := range positions {
		positions[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return format, positions, nil
}
