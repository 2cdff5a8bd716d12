// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cubegen

import (
	"io"

	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/cubew/pkg/cube/cubetype"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"gopkg.in/yaml.v2"
)

// maxCnodes bounds the size of a generated call tree.
const maxCnodes = 1 << 20

// Config describes a synthetic report.
type Config struct {
	Name string `yaml:"name"`
	// Seed determines the definitions. Rank r draws its values from
	// Seed+r+1.
	Seed  int64 `yaml:"seed"`
	Ranks int   `yaml:"ranks"`

	Compressed bool `yaml:"compressed"`
	// MiscSize is the size of the random misc data entry. Zero omits it.
	MiscSize int64 `yaml:"misc_size"`

	Metrics    []MetricConfig   `yaml:"metrics"`
	CallTree   CallTreeConfig   `yaml:"call_tree"`
	SystemTree SystemTreeConfig `yaml:"system_tree"`
	Topology   *TopologyConfig  `yaml:"topology,omitempty"`
}

// MetricConfig describes a metric and its children.
type MetricConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name,omitempty"`
	DType       string `yaml:"dtype"`
	Type        string `yaml:"type"`
	UOM         string `yaml:"uom,omitempty"`
	// Known is the fraction of call paths that receive a row. Zero and one
	// both mean every call path.
	Known float64 `yaml:"known,omitempty"`

	Expression     string `yaml:"expression,omitempty"`
	InitExpression string `yaml:"init_expression,omitempty"`
	AggrPlus       string `yaml:"aggr_plus,omitempty"`
	AggrMinus      string `yaml:"aggr_minus,omitempty"`
	AggrAggr       string `yaml:"aggr_aggr,omitempty"`
	NotCacheable   bool   `yaml:"not_cacheable,omitempty"`

	Children []MetricConfig `yaml:"children,omitempty"`
}

// CallTreeConfig shapes the call tree: one root calling into main, and
// FanOut children per call path down to Depth levels below it.
type CallTreeConfig struct {
	Depth  int `yaml:"depth"`
	FanOut int `yaml:"fan_out"`
	// Regions is the size of the region pool callees are drawn from.
	Regions int `yaml:"regions"`
}

// SystemTreeConfig shapes the system tree: one machine with Nodes nodes,
// each running ProcessesPerNode processes of ThreadsPerProcess threads.
type SystemTreeConfig struct {
	Nodes             int `yaml:"nodes"`
	ProcessesPerNode  int `yaml:"processes_per_node"`
	ThreadsPerProcess int `yaml:"threads_per_process"`
	// Iterative streams the tree into the anchor instead of defining it.
	Iterative bool `yaml:"iterative,omitempty"`
}

// Processes returns the total number of processes.
func (s SystemTreeConfig) Processes() int { return s.Nodes * s.ProcessesPerNode }

// Locations returns the total number of threads.
func (s SystemTreeConfig) Locations() int { return s.Processes() * s.ThreadsPerProcess }

// TopologyConfig places the threads, in definition order, on a cartesian
// grid.
type TopologyConfig struct {
	Name     string   `yaml:"name"`
	Dims     []int64  `yaml:"dims"`
	Periodic []bool   `yaml:"periodic,omitempty"`
	DimNames []string `yaml:"dim_names,omitempty"`
}

// DefaultConfig returns a small two-rank report.
func DefaultConfig() Config {
	return Config{
		Name:  "cubegen",
		Seed:  1,
		Ranks: 2,
		Metrics: []MetricConfig{
			{
				Name: "time", DisplayName: "Time", DType: "DOUBLE", Type: "EXCLUSIVE", UOM: "sec",
				Children: []MetricConfig{
					{Name: "comp", DisplayName: "Computation", DType: "DOUBLE", Type: "INCLUSIVE", UOM: "sec"},
				},
			},
			{Name: "visits", DisplayName: "Visits", DType: "UINT64", Type: "EXCLUSIVE", UOM: "occ"},
		},
		CallTree:   CallTreeConfig{Depth: 2, FanOut: 2, Regions: 4},
		SystemTree: SystemTreeConfig{Nodes: 2, ProcessesPerNode: 2, ThreadsPerProcess: 2},
	}
}

// LoadConfig reads a YAML config from fs. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(fs vfs.FS, path string) (Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "opening config")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading %s", path)
	}
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, cfg.Validate()
}

// Marshal renders the config as YAML.
func (cfg Config) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate checks the config.
func (cfg Config) Validate() error {
	if cfg.Name == "" {
		return errors.New("name is required")
	}
	if cfg.Ranks < 1 {
		return errors.Newf("ranks must be positive, got %d", cfg.Ranks)
	}
	if cfg.MiscSize < 0 {
		return errors.Newf("negative misc size %d", cfg.MiscSize)
	}
	if len(cfg.Metrics) == 0 {
		return errors.New("at least one metric is required")
	}
	seen := make(map[string]bool)
	var check func(ms []MetricConfig) error
	check = func(ms []MetricConfig) error {
		for _, m := range ms {
			if err := m.validate(); err != nil {
				return err
			}
			if seen[m.Name] {
				return errors.Newf("duplicate metric %q", m.Name)
			}
			seen[m.Name] = true
			if err := check(m.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(cfg.Metrics); err != nil {
		return err
	}

	ct := cfg.CallTree
	if ct.Depth < 0 || ct.FanOut < 0 {
		return errors.Newf("invalid call tree shape %+v", ct)
	}
	if ct.Regions < 1 {
		return errors.Newf("call tree needs at least one region, got %d", ct.Regions)
	}
	if n := ct.cnodes(); n < 0 || n > maxCnodes {
		return errors.Newf("call tree %+v has more than %d call paths", ct, maxCnodes)
	}

	st := cfg.SystemTree
	if st.Nodes < 1 || st.ProcessesPerNode < 1 || st.ThreadsPerProcess < 1 {
		return errors.Newf("invalid system tree shape %+v", st)
	}
	if cfg.Ranks > st.Processes() {
		return errors.WithHintf(
			errors.Newf("%d ranks but only %d processes", cfg.Ranks, st.Processes()),
			"every rank must own at least one process")
	}

	if t := cfg.Topology; t != nil {
		if st.Iterative {
			return errors.New("a topology needs a defined system tree; it cannot be used with iterative")
		}
		if len(t.Dims) == 0 {
			return errors.New("topology needs at least one dimension")
		}
		if len(t.Periodic) != 0 && len(t.Periodic) != len(t.Dims) {
			return errors.Newf("topology has %d dimensions but %d periodicity flags", len(t.Dims), len(t.Periodic))
		}
		if len(t.DimNames) != 0 && len(t.DimNames) != len(t.Dims) {
			return errors.Newf("topology has %d dimensions but %d dimension names", len(t.Dims), len(t.DimNames))
		}
		for i, d := range t.Dims {
			if d < 1 {
				return errors.Newf("topology dimension %d has size %d", i, d)
			}
		}
	}
	return nil
}

func (m MetricConfig) validate() error {
	if m.Name == "" {
		return errors.New("metric name is required")
	}
	if _, err := cubetype.ParseType(m.DType); err != nil {
		return errors.Wrapf(err, "metric %s", m.Name)
	}
	if _, err := cube.ParseMetricType(m.Type); err != nil {
		return errors.Wrapf(err, "metric %s", m.Name)
	}
	if m.Known < 0 || m.Known > 1 {
		return errors.Newf("metric %s: known fraction %v is not in [0, 1]", m.Name, m.Known)
	}
	return nil
}

// cnodes returns the number of call paths of the tree, or -1 if it exceeds
// maxCnodes.
func (ct CallTreeConfig) cnodes() int {
	total, level := 1, 1
	for d := 0; d < ct.Depth; d++ {
		level *= ct.FanOut
		total += level
		if total > maxCnodes {
			return -1
		}
	}
	return total
}
