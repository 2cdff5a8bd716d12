// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(vfs.Default, "testdata/small.yaml")
	require.NoError(t, err)
	require.Equal(t, "small", cfg.Name)
	require.Equal(t, int64(42), cfg.Seed)
	require.True(t, cfg.Compressed)
	require.Len(t, cfg.Metrics, 3)
	require.Equal(t, "mpi", cfg.Metrics[0].Children[0].Name)
	require.Equal(t, 0.5, cfg.Metrics[1].Known)
	require.Equal(t, 15, cfg.CallTree.cnodes())
	require.Equal(t, 16, cfg.SystemTree.Locations())
	require.Equal(t, []bool{true, true}, cfg.Topology.Periodic)

	res, err := Generate(context.Background(), vfs.NewMem(), "", cfg)
	require.NoError(t, err)
	require.Equal(t, "small.cubex", res.Path)
	require.Equal(t, 16, res.Locations)
}

func TestLoadConfigDefaults(t *testing.T) {
	fs := vfs.NewMem()
	f, err := fs.Create("partial.yaml")
	require.NoError(t, err)
	_, err = f.Write([]byte("name: partial\nranks: 1\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := LoadConfig(fs, "partial.yaml")
	require.NoError(t, err)
	want := DefaultConfig()
	want.Name, want.Ranks = "partial", 1
	require.Equal(t, want, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	fs := vfs.NewMem()
	for name, content := range map[string]string{
		"unknown.yaml": "name: x\nwidth: 3\n",
		"invalid.yaml": "name: x\nranks: 0\n",
	} {
		f, err := fs.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	_, err := LoadConfig(fs, "unknown.yaml")
	require.ErrorContains(t, err, "field width not found")
	_, err = LoadConfig(fs, "invalid.yaml")
	require.ErrorContains(t, err, "ranks must be positive")
	_, err = LoadConfig(fs, "missing.yaml")
	require.ErrorContains(t, err, "opening config")
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"default", func(*Config) {}, ""},
		{"no name", func(c *Config) { c.Name = "" }, "name is required"},
		{"no metrics", func(c *Config) { c.Metrics = nil }, "at least one metric"},
		{"negative misc", func(c *Config) { c.MiscSize = -1 }, "negative misc size"},
		{"bad dtype", func(c *Config) { c.Metrics[0].DType = "QUAD" }, `unknown dtype "QUAD"`},
		{"bad type", func(c *Config) { c.Metrics[1].Type = "AVERAGE" }, `unknown metric type "AVERAGE"`},
		{"duplicate", func(c *Config) { c.Metrics[1].Name = "time" }, `duplicate metric "time"`},
		{"nested duplicate", func(c *Config) { c.Metrics[0].Children[0].Name = "visits" }, `duplicate metric "visits"`},
		{"known", func(c *Config) { c.Metrics[1].Known = 1.5 }, "not in [0, 1]"},
		{"no regions", func(c *Config) { c.CallTree.Regions = 0 }, "at least one region"},
		{"huge call tree", func(c *Config) { c.CallTree.Depth, c.CallTree.FanOut = 30, 2 }, "call paths"},
		{"no threads", func(c *Config) { c.SystemTree.ThreadsPerProcess = 0 }, "invalid system tree shape"},
		{"too many ranks", func(c *Config) { c.Ranks = 5 }, "5 ranks but only 4 processes"},
		{"iterative topology", func(c *Config) {
			c.SystemTree.Iterative = true
			c.Topology = &TopologyConfig{Dims: []int64{2}}
		}, "cannot be used with iterative"},
		{"topology periodic", func(c *Config) {
			c.Topology = &TopologyConfig{Dims: []int64{2, 2}, Periodic: []bool{true}}
		}, "2 dimensions but 1 periodicity flags"},
		{"topology size", func(c *Config) {
			c.Topology = &TopologyConfig{Dims: []int64{2, 0}}
		}, "dimension 1 has size 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.err)
		})
	}
}

func TestTreeSource(t *testing.T) {
	datadriven.RunTest(t, "testdata/tree", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "tree":
			var st SystemTreeConfig
			d.ScanArgs(t, "nodes", &st.Nodes)
			d.ScanArgs(t, "ppn", &st.ProcessesPerNode)
			d.ScanArgs(t, "tpp", &st.ThreadsPerProcess)
			src := newTreeSource(st)
			ctx := context.Background()
			info, err := src.Init(ctx)
			require.NoError(t, err)

			var buf strings.Builder
			var got cube.SystemTreeInfo
			state := cube.StateInit
			fmt.Fprintln(&buf, state)
			for state != cube.StateStop {
				var step cube.SystemTreeStep
				state, err = src.Step(ctx, &step)
				require.NoError(t, err)
				switch state {
				case cube.StateSTN:
					got.NumSystemTreeNodes++
					fmt.Fprintf(&buf, "%s %s (%s)\n", state, step.Node.Name, step.Node.Class)
				case cube.StateLG:
					got.NumLocationGroups++
					fmt.Fprintf(&buf, "%s %s\n", state, step.Group.Name)
				case cube.StateLoc:
					got.NumLocations++
					fmt.Fprintf(&buf, "%s %s\n", state, step.Location.Name)
				default:
					fmt.Fprintln(&buf, state)
				}
			}
			src.Finish(ctx)
			require.True(t, src.finished)
			require.Equal(t, info, got)
			fmt.Fprintf(&buf, "totals: %d stns, %d lgs, %d locs\n",
				info.NumSystemTreeNodes, info.NumLocationGroups, info.NumLocations)
			return buf.String()
		default:
			d.Fatalf(t, "unknown command %s", d.Cmd)
			return ""
		}
	})
}
