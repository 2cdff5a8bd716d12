// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package layout

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors/oserror"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestArchive(t *testing.T, fs vfs.FS) *Archive {
	a, err := CreateArchive(fs, "report.cubex", ArchiveOptions{
		Owner: "tester",
		Now:   func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return a
}

func TestArchiveEntries(t *testing.T) {
	fs := vfs.NewMem()
	a := newTestArchive(t, fs)
	require.NoError(t, a.WriteFile("notes.txt", []byte("hello")))
	require.NoError(t, a.WriteAnchor(false /* compressed */, func(w io.Writer) error {
		_, err := io.WriteString(w, "<cube/>")
		return err
	}))
	require.NoError(t, a.Close())

	entries, err := ReadArchive(fs, "report.cubex")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "notes.txt", entries[0].Header.Name)
	require.Equal(t, "hello", string(entries[0].Data))
	require.Equal(t, AnchorName, entries[1].Header.Name)
	require.Equal(t, "<cube/>", string(entries[1].Data))

	h := entries[0].Header
	require.Equal(t, int64(0600), h.Mode)
	require.Equal(t, "tester", h.Uname)
	require.Equal(t, "users", h.Gname)
	require.True(t, testNow.Equal(h.ModTime))

	// Spools are removed once copied into the archive.
	_, err = fs.Stat("report.cubex.spool1")
	require.True(t, oserror.IsNotExist(err))
}

func TestCompressedAnchor(t *testing.T) {
	fs := vfs.NewMem()
	a := newTestArchive(t, fs)
	require.NoError(t, a.WriteAnchor(true /* compressed */, func(w io.Writer) error {
		_, err := io.WriteString(w, "<cube version=\"4.4\"/>")
		return err
	}))
	require.NoError(t, a.Close())

	entries, err := ReadArchive(fs, "report.cubex")
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, entries[0].Data[:2])
	xml, err := DecodeAnchor(entries[0].Data)
	require.NoError(t, err)
	require.Equal(t, "<cube version=\"4.4\"/>", string(xml))
}

func TestDataEntries(t *testing.T) {
	rows := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
	}
	for _, compressed := range []bool{false, true} {
		t.Run(fmt.Sprintf("compressed=%t", compressed), func(t *testing.T) {
			fs := vfs.NewMem()
			a := newTestArchive(t, fs)
			dw, err := NewDataWriter(a, DataName(0), len(rows), 4, compressed)
			require.NoError(t, err)
			for _, r := range rows {
				require.NoError(t, dw.WriteRow(r))
			}
			require.Error(t, dw.WriteRow(rows[0]))
			require.NoError(t, dw.Close())
			require.NoError(t, a.Close())

			entries, err := ReadArchive(fs, "report.cubex")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			require.Equal(t, "0.data", entries[0].Header.Name)
			data := entries[0].Data
			if compressed {
				require.Equal(t, CompressedDataMagic, string(data[:len(CompressedDataMagic)]))
			} else {
				require.Equal(t, DataMagic, string(data[:len(DataMagic)]))
				require.Len(t, data, len(DataMagic)+12)
			}
			got, err := DecodeData(data, 4)
			require.NoError(t, err)
			require.Equal(t, rows, got)
		})
	}
}

func TestDataWriterShort(t *testing.T) {
	fs := vfs.NewMem()
	a := newTestArchive(t, fs)
	dw, err := NewDataWriter(a, DataName(1), 2, 1, true /* compressed */)
	require.NoError(t, err)
	require.NoError(t, dw.WriteRow([]byte{1}))
	require.Error(t, dw.WriteRow([]byte{1, 2}))
	require.Error(t, dw.Close())
}

func TestIndex(t *testing.T) {
	dense := EncodeIndex(IndexDense, nil)
	require.Equal(t, append([]byte(IndexMagic), 1, 0, 0, 0, 0, 0, 3), dense)

	sparse := EncodeIndex(IndexSparse, []uint32{0, 2})
	require.Equal(t, append([]byte(IndexMagic),
		1, 0, 0, 0, 0, 0, 1,
		2, 0, 0, 0,
		0, 0, 0, 0,
		2, 0, 0, 0), sparse)

	format, positions, err := DecodeIndex(sparse)
	require.NoError(t, err)
	require.Equal(t, IndexSparse, format)
	require.Equal(t, []uint32{0, 2}, positions)

	_, _, err = DecodeIndex([]byte("CUBEX.DATA"))
	require.Error(t, err)
}
