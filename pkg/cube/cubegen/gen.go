// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cubegen generates synthetic CUBE reports. A report is written by
// a number of ranks running concurrently, the way a parallel application
// writes one: every rank defines the same report, rank 0 as MASTER and the
// others as SLAVE, and rank 0 gathers the values of the other ranks into the
// rows it writes.
package cubegen

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/cubew/pkg/util/humanizeutil"
	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/cubew/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/cockroachdb/redact"
	"golang.org/x/sync/errgroup"
)

// Names of the misc data entries of a generated report.
const (
	ConfigEntry = "cubegen.yaml"
	RandomEntry = "random.bin"
)

const (
	module = "cubegen.c"
	// feedBuffer is the number of rows a rank may run ahead of rank 0.
	feedBuffer = 64
)

// Result summarizes a generated report.
type Result struct {
	Path      string
	Size      int64
	Metrics   int
	Cnodes    int
	Locations int
	// Rows is the number of rows rank 0 wrote.
	Rows int64
}

// contribution carries the values one rank owns in one row.
type contribution struct {
	metric cube.MetricID
	cnode  cube.CnodeID
	vals   []cubetype.Value
}

type rank struct {
	id  int
	cfg Config
	c   *cube.Cube
	rng *rand.Rand
	// owned lists the locations whose values this rank produces.
	owned []int
}

// ownedLocations returns the locations owned by rank r. Processes are dealt
// out round-robin and a rank owns every thread of its processes.
func ownedLocations(st SystemTreeConfig, ranks, r int) []int {
	var owned []int
	for g := r; g < st.Processes(); g += ranks {
		for t := 0; t < st.ThreadsPerProcess; t++ {
			owned = append(owned, g*st.ThreadsPerProcess+t)
		}
	}
	return owned
}

// Generate writes the report described by cfg to dir on fs.
func Generate(ctx context.Context, fs vfs.FS, dir string, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	ctx = logtags.AddTag(ctx, "gen", cfg.Name)
	start := timeutil.Now()
	log.Infof(ctx, "generating with %d ranks, %d locations, %d call paths",
		redact.Safe(cfg.Ranks), redact.Safe(cfg.SystemTree.Locations()), redact.Safe(cfg.CallTree.cnodes()))

	if dir != "" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return Result{}, errors.Wrapf(err, "creating %s", dir)
		}
	}

	owners := make([][]int, cfg.Ranks)
	feeds := make([]chan contribution, cfg.Ranks)
	for r := range owners {
		owners[r] = ownedLocations(cfg.SystemTree, cfg.Ranks, r)
		if r > 0 {
			feeds[r] = make(chan contribution, feedBuffer)
		}
	}

	var res Result
	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		res, err = runMaster(gCtx, fs, dir, cfg, owners, feeds)
		return errors.Wrap(err, "rank 0")
	})
	for r := 1; r < cfg.Ranks; r++ {
		group.Go(func() error {
			defer close(feeds[r])
			return errors.Wrapf(runSlave(gCtx, cfg, r, owners[r], feeds[r]), "rank %d", r)
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	info, err := fs.Stat(res.Path)
	if err != nil {
		return Result{}, errors.Wrap(err, "inspecting report")
	}
	res.Size = info.Size()
	log.Infof(ctx, "generated %s: %s rows, %s in %s", res.Path,
		humanizeutil.Count(res.Rows), humanizeutil.IBytes(res.Size), humanizeutil.Duration(timeutil.Since(start)))
	return res, nil
}

func newRank(ctx context.Context, cfg Config, id int, owned []int, opts cube.Options) (*rank, error) {
	c, err := cube.Create(ctx, cfg.Name, opts)
	if err != nil {
		return nil, err
	}
	r := &rank{
		id:    id,
		cfg:   cfg,
		c:     c,
		rng:   rand.New(rand.NewSource(cfg.Seed + int64(id) + 1)),
		owned: owned,
	}
	if err := define(ctx, c, cfg, id == 0); err != nil {
		c.Abort(ctx)
		return nil, errors.Wrap(err, "defining report")
	}
	return r, nil
}

func runSlave(
	ctx context.Context, cfg Config, id int, owned []int, out chan<- contribution,
) error {
	ctx = logtags.AddTag(ctx, "rank", id)
	r, err := newRank(ctx, cfg, id, owned, cube.Options{Flavour: cube.Slave})
	if err != nil {
		return err
	}
	if err := r.c.WriteDef(ctx); err != nil {
		return err
	}
	width := r.c.RowWidth()
	for m := 0; m < r.c.NumMetrics(); m++ {
		mid := cube.MetricID(m)
		rows, err := r.c.CnodesForMetric(ctx, mid)
		if err != nil {
			return err
		}
		t := r.c.Metric(mid).ValueType
		for _, cn := range rows {
			vals := r.contribute(t)
			row := zeroRow(t, width)
			place(row, r.owned, vals)
			// Slaves run the same write sequence so that a mistake shows up
			// on every rank.
			if err := r.c.WriteRow(ctx, mid, cn, row); err != nil {
				return err
			}
			select {
			case out <- contribution{metric: mid, cnode: cn, vals: vals}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return r.c.Finish(ctx)
}

func runMaster(
	ctx context.Context,
	fs vfs.FS,
	dir string,
	cfg Config,
	owners [][]int,
	feeds []chan contribution,
) (Result, error) {
	ctx = logtags.AddTag(ctx, "rank", 0)
	r, err := newRank(ctx, cfg, 0, owners[0], cube.Options{
		FS:         fs,
		Dir:        dir,
		Flavour:    cube.Master,
		Compressed: cfg.Compressed,
		Owner:      "cubegen",
	})
	if err != nil {
		return Result{}, err
	}
	// Releases the archive on every early return.
	defer r.c.Abort(ctx)
	res := Result{
		Path:    fs.PathJoin(dir, cfg.Name+layout.Extension),
		Metrics: r.c.NumMetrics(),
		Cnodes:  r.c.NumCnodes(),
	}
	if err := r.c.WriteDef(ctx); err != nil {
		return Result{}, err
	}
	width := r.c.RowWidth()
	res.Locations = width
	every := log.Every(time.Second)
	for m := 0; m < r.c.NumMetrics(); m++ {
		id := cube.MetricID(m)
		metric := r.c.Metric(id)
		rows, err := r.c.CnodesForMetric(ctx, id)
		if err != nil {
			return Result{}, err
		}
		t := metric.ValueType
		for i, cn := range rows {
			row := zeroRow(t, width)
			place(row, r.owned, r.contribute(t))
			for s := 1; s < len(feeds); s++ {
				var in contribution
				var ok bool
				select {
				case in, ok = <-feeds[s]:
				case <-ctx.Done():
					return Result{}, ctx.Err()
				}
				if !ok {
					// The rank failed and its error cancels ctx.
					<-ctx.Done()
					return Result{}, ctx.Err()
				}
				if in.metric != id || in.cnode != cn {
					return Result{}, errors.AssertionFailedf(
						"rank %d sent metric %d cnode %d, expected metric %d cnode %d",
						s, in.metric, in.cnode, id, cn)
				}
				place(row, owners[s], in.vals)
			}
			if err := r.c.WriteRow(ctx, id, cn, row); err != nil {
				return Result{}, err
			}
			res.Rows++
			if every.ShouldLog() {
				log.Infof(ctx, "metric %s: row %d of %d", metric.UniqueName, redact.Safe(i+1), redact.Safe(len(rows)))
			}
		}
	}

	data, err := cfg.Marshal()
	if err != nil {
		return Result{}, errors.Wrap(err, "encoding config")
	}
	if err := r.c.WriteMiscData(ctx, ConfigEntry, data); err != nil {
		return Result{}, err
	}
	if cfg.MiscSize > 0 {
		blob := make([]byte, cfg.MiscSize)
		_, _ = r.rng.Read(blob)
		if err := r.c.WriteMiscData(ctx, RandomEntry, blob); err != nil {
			return Result{}, err
		}
	}
	return res, r.c.Finish(ctx)
}

// contribute draws the values of the locations r owns.
func (r *rank) contribute(t cubetype.Type) []cubetype.Value {
	vals := make([]cubetype.Value, len(r.owned))
	for i := range vals {
		vals[i] = randomValue(r.rng, t)
	}
	return vals
}

func zeroRow(t cubetype.Type, width int) []cubetype.Value {
	row := make([]cubetype.Value, width)
	for i := range row {
		row[i] = cubetype.Zero(t)
	}
	return row
}

func place(row []cubetype.Value, locs []int, vals []cubetype.Value) {
	for i, loc := range locs {
		row[loc] = vals[i]
	}
}

// define defines the report described by cfg. Every rank calls it with the
// same cfg and gets the same IDs. Only the master streams an iterative
// system tree; the other ranks only declare its size.
func define(ctx context.Context, c *cube.Cube, cfg Config, master bool) error {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if err := c.DefAttr("generator", "cubegen"); err != nil {
		return err
	}
	if err := c.DefAttr("seed", strconv.FormatInt(cfg.Seed, 10)); err != nil {
		return err
	}
	if err := c.DefAttr("ranks", strconv.Itoa(cfg.Ranks)); err != nil {
		return err
	}

	var sparse []sparseMetric
	if err := defineMetrics(ctx, c, cfg.Metrics, cube.RootMetric, &sparse); err != nil {
		return err
	}
	if err := defineCallTree(ctx, c, rng, cfg.CallTree); err != nil {
		return err
	}
	for _, s := range sparse {
		if err := c.SetKnownCnodes(s.id, knownBits(rng, c.NumCnodes(), s.known)); err != nil {
			return err
		}
	}

	st := cfg.SystemTree
	switch {
	case !st.Iterative:
		if err := defineSystemTree(ctx, c, st); err != nil {
			return err
		}
	case master:
		if err := c.SetSystemTreeSource(newTreeSource(st)); err != nil {
			return err
		}
	default:
		if err := c.SetSystemTreeSize(st.Locations()); err != nil {
			return err
		}
	}
	if cfg.Topology != nil {
		return defineTopology(ctx, c, *cfg.Topology)
	}
	return nil
}

type sparseMetric struct {
	id    cube.MetricID
	known float64
}

func defineMetrics(
	ctx context.Context, c *cube.Cube, ms []MetricConfig, parent cube.MetricID, sparse *[]sparseMetric,
) error {
	for _, m := range ms {
		typ, err := cube.ParseMetricType(m.Type)
		if err != nil {
			return err
		}
		display := m.DisplayName
		if display == "" {
			display = m.Name
		}
		id, err := c.DefMetric(ctx, cube.MetricDef{
			DisplayName:    display,
			UniqueName:     m.Name,
			DType:          m.DType,
			UOM:            m.UOM,
			Type:           typ,
			Expression:     m.Expression,
			InitExpression: m.InitExpression,
			AggrPlus:       m.AggrPlus,
			AggrMinus:      m.AggrMinus,
			AggrAggr:       m.AggrAggr,
			NotCacheable:   m.NotCacheable,
		}, parent)
		if err != nil {
			return err
		}
		if m.Known > 0 && m.Known < 1 {
			*sparse = append(*sparse, sparseMetric{id: id, known: m.Known})
		}
		if err := defineMetrics(ctx, c, m.Children, id, sparse); err != nil {
			return err
		}
	}
	return nil
}

func regionName(i int) string {
	if i == 0 {
		return "main"
	}
	return fmt.Sprintf("kernel_%d", i)
}

func defineCallTree(ctx context.Context, c *cube.Cube, rng *rand.Rand, ct CallTreeConfig) error {
	regions := make([]cube.RegionID, ct.Regions)
	for i := range regions {
		var err error
		regions[i], err = c.DefRegion(ctx, cube.RegionDef{
			Name:     regionName(i),
			Paradigm: "compiler",
			Role:     "function",
			Begin:    100*i + 1,
			End:      100*i + 99,
			Module:   module,
		})
		if err != nil {
			return err
		}
	}
	root, err := c.DefCnode(ctx, regions[0], module, 1, cube.RootCnode)
	if err != nil {
		return err
	}
	var calls func(parent cube.CnodeID, depth int) error
	calls = func(parent cube.CnodeID, depth int) error {
		if depth == ct.Depth {
			return nil
		}
		for i := 0; i < ct.FanOut; i++ {
			callee := regions[0]
			if len(regions) > 1 {
				callee = regions[1+rng.Intn(len(regions)-1)]
			}
			cn, err := c.DefCnode(ctx, callee, module, 1+rng.Intn(1000), parent)
			if err != nil {
				return err
			}
			if depth == 0 {
				if err := c.AddNumericParameter(cn, "phase", float64(i)); err != nil {
					return err
				}
			}
			if err := calls(cn, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return calls(root, 0)
}

// knownBits marks each of n call paths as known with probability p.
func knownBits(rng *rand.Rand, n int, p float64) []byte {
	bits := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			bits[i/8] |= 0x80 >> (i % 8)
		}
	}
	return bits
}

// defineTopology places the locations, in ID order, on the grid. Locations
// beyond the grid's capacity are left out.
func defineTopology(ctx context.Context, c *cube.Cube, t TopologyConfig) error {
	periodic := t.Periodic
	if len(periodic) == 0 {
		periodic = make([]bool, len(t.Dims))
	}
	cart, err := c.DefCartesian(ctx, t.Name, t.Dims, periodic, t.DimNames)
	if err != nil {
		return err
	}
	n := int64(c.NumLocations())
	capacity := int64(1)
	for _, d := range t.Dims {
		if capacity *= d; capacity >= n {
			capacity = n
			break
		}
	}
	coords := make([]int64, len(t.Dims))
	for loc := int64(0); loc < capacity; loc++ {
		rest := loc
		for i, d := range t.Dims {
			coords[i] = rest % d
			rest /= d
		}
		if err := c.DefCoords(ctx, cart, cube.LocationID(loc), coords); err != nil {
			return err
		}
	}
	return nil
}
