// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

const xmlHeader = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n\n"

func newTestCube(
	t testing.TB, fs vfs.FS, name string, flavour Flavour, compressed bool,
) *Cube {
	c, err := Create(context.Background(), name, Options{
		FS:         fs,
		Flavour:    flavour,
		Compressed: compressed,
		Owner:      "tester",
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return c
}

// parseBits turns a string of 0s and 1s into a most-significant-bit first
// bitstring.
func parseBits(s string) []byte {
	bits := make([]byte, (len(s)+7)/8)
	for i, ch := range s {
		if ch == '1' {
			bits[i/8] |= 0x80 >> (uint(i) % 8)
		}
	}
	return bits
}

// TestCubeDataDriven drives a single cube through definition and write
// sequences.
//
//	new [flavour=master|writer|slave] [compressed]
//	metric name=<n> type=<T> dtype=<D> [parent=<id>] [uom=<u>]
//	region name=<n> [mod=<m>] [begin=<l>] [end=<l>]
//	cnode callee=<id> [parent=<id>] [line=<l>] [mod=<m>]
//	machine name=<n>
//	process name=<n> rank=<r> stn=<id>
//	thread name=<n> rank=<r> process=<id>
//	known metric=<id> bits=<0101...>
//	enumerate metric=<id>
//	write metric=<id> cnode=<id> [as=double|uint64|int64]
//	<values>
//	finished metric=<id>
//	finish
//	anchor
func TestCubeDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		ctx := context.Background()
		var fs vfs.FS
		var c *Cube
		var entries []layout.Entry

		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			result := func(kind string, id int32, err error) string {
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return fmt.Sprintf("%s %d", kind, id)
			}
			intArg := func(key string, def int) int {
				v := def
				d.MaybeScanArgs(t, key, &v)
				return v
			}
			strArg := func(key string) string {
				var v string
				d.MaybeScanArgs(t, key, &v)
				return v
			}

			switch d.Cmd {
			case "new":
				flavour := Master
				switch strArg("flavour") {
				case "writer":
					flavour = Writer
				case "slave":
					flavour = Slave
				}
				fs = vfs.NewMem()
				c = newTestCube(t, fs, "test", flavour, d.HasArg("compressed"))
				entries = nil
				return ""

			case "metric":
				var name, typ, dtype string
				d.ScanArgs(t, "name", &name)
				d.ScanArgs(t, "type", &typ)
				d.ScanArgs(t, "dtype", &dtype)
				mt, err := ParseMetricType(typ)
				require.NoError(t, err)
				id, err := c.DefMetric(ctx, MetricDef{
					DisplayName: name,
					UniqueName:  name,
					DType:       dtype,
					UOM:         strArg("uom"),
					Type:        mt,
				}, MetricID(intArg("parent", int(RootMetric))))
				return result("metric", int32(id), err)

			case "region":
				id, err := c.DefRegion(ctx, RegionDef{
					Name:   strArg("name"),
					Module: strArg("mod"),
					Begin:  intArg("begin", NoLine),
					End:    intArg("end", NoLine),
				})
				return result("region", int32(id), err)

			case "cnode":
				var callee int
				d.ScanArgs(t, "callee", &callee)
				id, err := c.DefCnode(ctx, RegionID(callee), strArg("mod"),
					intArg("line", NoLine), CnodeID(intArg("parent", int(RootCnode))))
				return result("cnode", int32(id), err)

			case "machine":
				id, err := c.DefMachine(ctx, strArg("name"), "")
				return result("stn", int32(id), err)

			case "process":
				var rank, stn int
				d.ScanArgs(t, "rank", &rank)
				d.ScanArgs(t, "stn", &stn)
				id, err := c.DefProcess(ctx, strArg("name"), rank, SystemTreeNodeID(stn))
				return result("lg", int32(id), err)

			case "thread":
				var rank, process int
				d.ScanArgs(t, "rank", &rank)
				d.ScanArgs(t, "process", &process)
				id, err := c.DefThread(ctx, strArg("name"), rank, LocationGroupID(process))
				return result("loc", int32(id), err)

			case "known":
				var m int
				var bits string
				d.ScanArgs(t, "metric", &m)
				d.ScanArgs(t, "bits", &bits)
				if err := c.SetKnownCnodes(MetricID(m), parseBits(bits)); err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return ""

			case "enumerate":
				var m int
				d.ScanArgs(t, "metric", &m)
				rows, err := c.CnodesForMetric(ctx, MetricID(m))
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				if len(rows) == 0 {
					return "(none)"
				}
				parts := make([]string, len(rows))
				for i, cn := range rows {
					parts[i] = strconv.Itoa(int(cn))
				}
				return strings.Join(parts, " ")

			case "write":
				var m, cn int
				d.ScanArgs(t, "metric", &m)
				d.ScanArgs(t, "cnode", &cn)
				fields := strings.Fields(d.Input)
				var err error
				switch as := strArg("as"); as {
				case "", "double":
					vals := make([]float64, len(fields))
					for i, f := range fields {
						vals[i], err = strconv.ParseFloat(f, 64)
						require.NoError(t, err)
					}
					err = c.WriteRowOfDoubles(ctx, MetricID(m), CnodeID(cn), vals)
				case "uint64":
					vals := make([]uint64, len(fields))
					for i, f := range fields {
						vals[i], err = strconv.ParseUint(f, 10, 64)
						require.NoError(t, err)
					}
					err = c.WriteRowOfUint64(ctx, MetricID(m), CnodeID(cn), vals)
				case "int64":
					vals := make([]int64, len(fields))
					for i, f := range fields {
						vals[i], err = strconv.ParseInt(f, 10, 64)
						require.NoError(t, err)
					}
					err = c.WriteRowOfInt64(ctx, MetricID(m), CnodeID(cn), vals)
				default:
					d.Fatalf(t, "unknown value kind %q", as)
				}
				if err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				return "ok"

			case "finished":
				var m int
				d.ScanArgs(t, "metric", &m)
				return strconv.FormatBool(c.MetricFinished(MetricID(m)))

			case "finish":
				if err := c.Finish(ctx); err != nil {
					return fmt.Sprintf("error: %v", err)
				}
				if c.Flavour() == Slave {
					return "(no archive)"
				}
				var err error
				entries, err = layout.ReadArchive(fs, "test"+layout.Extension)
				require.NoError(t, err)
				var buf strings.Builder
				for _, e := range entries {
					fmt.Fprintln(&buf, e.Header.Name)
				}
				return buf.String()

			case "anchor":
				for _, e := range entries {
					if e.Header.Name != layout.AnchorName {
						continue
					}
					xml, err := layout.DecodeAnchor(e.Data)
					require.NoError(t, err)
					require.True(t, strings.HasPrefix(string(xml), xmlHeader))
					return strings.TrimPrefix(string(xml), xmlHeader)
				}
				return "(no anchor)"

			default:
				d.Fatalf(t, "unknown command %s", d.Cmd)
				return ""
			}
		})
	})
}
