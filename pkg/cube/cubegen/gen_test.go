// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func readEntries(t *testing.T, fs vfs.FS, path string) map[string][]byte {
	entries, err := layout.ReadArchive(fs, path)
	require.NoError(t, err)
	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		m[e.Header.Name] = e.Data
	}
	return m
}

func TestGenerateDefault(t *testing.T) {
	ctx := context.Background()
	for _, compressed := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.Compressed = compressed
		cfg.MiscSize = 100
		fs := vfs.NewMem()
		res, err := Generate(ctx, fs, "", cfg)
		require.NoError(t, err)
		require.Equal(t, "cubegen.cubex", res.Path)
		require.Equal(t, 3, res.Metrics)
		require.Equal(t, 7, res.Cnodes)
		require.Equal(t, 8, res.Locations)
		require.Equal(t, int64(3*7), res.Rows)
		require.Positive(t, res.Size)

		entries := readEntries(t, fs, res.Path)
		for _, name := range []string{"0.data", "0.index", "1.data", "1.index", "2.data", "2.index", "anchor.xml"} {
			require.Contains(t, entries, name)
		}
		require.Len(t, entries[RandomEntry], 100)
		for m, size := range []int{8, 8, 8} {
			rows, err := layout.DecodeData(entries[layout.DataName(m)], size*res.Locations)
			require.NoError(t, err)
			require.Len(t, rows, 7)
		}

		var back Config
		require.NoError(t, yaml.UnmarshalStrict(entries[ConfigEntry], &back))
		require.Equal(t, cfg, back)
	}
}

// TestGenerateGather checks that every location's values come from the rank
// owning its process.
func TestGenerateGather(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Name:       "gather",
		Seed:       7,
		Ranks:      2,
		Metrics:    []MetricConfig{{Name: "time", DType: "DOUBLE", Type: "EXCLUSIVE"}},
		CallTree:   CallTreeConfig{Regions: 1},
		SystemTree: SystemTreeConfig{Nodes: 1, ProcessesPerNode: 2, ThreadsPerProcess: 1},
	}
	draw := func(rank int, n int) []cubetype.Value {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(rank) + 1))
		var vals []cubetype.Value
		for i := 0; i < n; i++ {
			vals = append(vals, randomValue(rng, cubetype.DoubleType))
		}
		return vals
	}

	for _, tc := range []struct {
		ranks int
		want  []cubetype.Value
	}{
		{ranks: 1, want: draw(0, 2)},
		{ranks: 2, want: []cubetype.Value{draw(0, 1)[0], draw(1, 1)[0]}},
	} {
		cfg.Ranks = tc.ranks
		fs := vfs.NewMem()
		res, err := Generate(ctx, fs, "", cfg)
		require.NoError(t, err)
		require.Equal(t, int64(1), res.Rows)

		rows, err := layout.DecodeData(readEntries(t, fs, res.Path)["0.data"], 16)
		require.NoError(t, err)
		want, err := cubetype.AppendRow(nil, cubetype.DoubleType, tc.want)
		require.NoError(t, err)
		require.Equal(t, [][]byte{want}, rows, "ranks=%d", tc.ranks)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Ranks = 3
	cfg.SystemTree.Nodes = 3
	cfg.Metrics = append(cfg.Metrics,
		MetricConfig{Name: "hist", DType: "HISTOGRAM(4)", Type: "SIMPLE", Known: 0.5},
		MetricConfig{Name: "tau", DType: "TAU_ATOMIC", Type: "EXCLUSIVE"},
		MetricConfig{Name: "ratio", DType: "DOUBLE", Type: "POSTDERIVED", Expression: "metric::time()/metric::visits()"},
	)

	run := func() map[string][]byte {
		fs := vfs.NewMem()
		res, err := Generate(ctx, fs, "out", cfg)
		require.NoError(t, err)
		require.Equal(t, "out/cubegen.cubex", res.Path)
		return readEntries(t, fs, res.Path)
	}
	first, second := run(), run()
	require.Equal(t, first, second)
	// No rows for the postderived metric.
	require.NotContains(t, first, "5.data")
	require.Contains(t, first, "4.data")

	if index, ok := first["3.index"]; ok {
		format, positions, err := layout.DecodeIndex(index)
		require.NoError(t, err)
		require.Equal(t, layout.IndexSparse, format)
		for i, pos := range positions {
			require.Less(t, pos, uint32(7))
			if i > 0 {
				require.Less(t, positions[i-1], pos)
			}
		}
	}
}

// TestGenerateIterative checks that streaming the system tree yields the
// same report as defining it.
func TestGenerateIterative(t *testing.T) {
	ctx := context.Background()
	run := func(iterative bool) map[string][]byte {
		cfg := DefaultConfig()
		cfg.SystemTree.Iterative = iterative
		fs := vfs.NewMem()
		res, err := Generate(ctx, fs, "", cfg)
		require.NoError(t, err)
		require.Equal(t, 8, res.Locations)
		entries := readEntries(t, fs, res.Path)
		delete(entries, ConfigEntry)
		return entries
	}
	eager, streamed := run(false), run(true)
	require.Equal(t, string(eager["anchor.xml"]), string(streamed["anchor.xml"]))
	require.Equal(t, eager, streamed)
}

func TestGenerateTopology(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Topology = &TopologyConfig{Name: "grid", Dims: []int64{2, 3}, DimNames: []string{"x", "y"}}
	fs := vfs.NewMem()
	res, err := Generate(context.Background(), fs, "", cfg)
	require.NoError(t, err)
	anchor := string(readEntries(t, fs, res.Path)["anchor.xml"])
	require.Contains(t, anchor, `<cart name="grid" ndims="2">`)
	require.Contains(t, anchor, `<dim name="y" size="3" periodic="false"/>`)
	// Six of the eight threads fit on the grid.
	require.Equal(t, 6, strings.Count(anchor, "<coord "))
	require.Contains(t, anchor, `<coord locId="5">1 2</coord>`)
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ranks = 0
	_, err := Generate(context.Background(), vfs.NewMem(), "", cfg)
	require.ErrorContains(t, err, "ranks must be positive")
}

func TestOwnedLocations(t *testing.T) {
	st := SystemTreeConfig{Nodes: 2, ProcessesPerNode: 2, ThreadsPerProcess: 2}
	require.Equal(t, []int{0, 1, 6, 7}, ownedLocations(st, 3, 0))
	require.Equal(t, []int{2, 3}, ownedLocations(st, 3, 1))
	require.Equal(t, []int{4, 5}, ownedLocations(st, 3, 2))
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, ownedLocations(st, 1, 0))
}

func TestKnownBits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	require.Equal(t, []byte{0, 0}, knownBits(rng, 9, 0))
	require.Equal(t, []byte{0xff, 0x80}, knownBits(rng, 9, 1))
}

func TestRandomValuesFitTheirType(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, dtype := range []string{
		"DOUBLE", "MINDOUBLE", "MAXDOUBLE", "UINT8", "INT8", "UINT16", "INT16", "UINT32", "INT32",
		"UINT64", "INTEGER", "TAU_ATOMIC", "COMPLEX", "RATE", "SCALE_FUNC", "HISTOGRAM(3)", "NDOUBLES(2)",
	} {
		typ, err := cubetype.ParseType(dtype)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			buf, err := cubetype.AppendValue(nil, typ, randomValue(rng, typ))
			require.NoError(t, err, dtype)
			require.Len(t, buf, typ.Size(), dtype)
		}
	}
}
