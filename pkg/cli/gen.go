// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/cockroachdb/cubew/pkg/cli/cliflags"
	"github.com/cockroachdb/cubew/pkg/cli/exit"
	"github.com/cockroachdb/cubew/pkg/cube/cubegen"
	"github.com/cockroachdb/cubew/pkg/util/humanizeutil"
	"github.com/spf13/cobra"
)

func newGenCmd(env *cliEnv) *cobra.Command {
	var opts struct {
		configPath string
		outputDir  string
		name       string
		ranks      int
		seed       int64
		miscSize   int64
		compressed bool
		dumpConfig bool
	}
	cmd := &cobra.Command{
		Use:   "gen [flags]",
		Short: "generate a synthetic report",
		Long: `
Generate a synthetic report. Every rank runs concurrently and defines the
same report; rank 0 gathers the values of the others and writes the file.
Without --config a small built-in configuration is used.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cubegen.DefaultConfig()
			if opts.configPath != "" {
				var err error
				if cfg, err = cubegen.LoadConfig(env.fs, opts.configPath); err != nil {
					return newError(err, exit.InvalidGeneratorConfig())
				}
			}
			f := cmd.Flags()
			if f.Changed(cliflags.Name.Name) {
				cfg.Name = opts.name
			}
			if f.Changed(cliflags.Ranks.Name) {
				cfg.Ranks = opts.ranks
			}
			if f.Changed(cliflags.Seed.Name) {
				cfg.Seed = opts.seed
			}
			if f.Changed(cliflags.MiscSize.Name) {
				cfg.MiscSize = opts.miscSize
			}
			if f.Changed(cliflags.Compressed.Name) {
				cfg.Compressed = opts.compressed
			}
			if err := cfg.Validate(); err != nil {
				return newError(err, exit.InvalidGeneratorConfig())
			}

			out := cmd.OutOrStdout()
			if opts.dumpConfig {
				data, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			res, err := cubegen.Generate(cmd.Context(), env.fs, opts.outputDir, cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 2, 1, 2, ' ', 0)
			fmt.Fprintf(tw, "Path:\t%s\n", res.Path)
			fmt.Fprintf(tw, "Size:\t%s\n", humanizeutil.IBytes(res.Size))
			fmt.Fprintf(tw, "Metrics:\t%d\n", res.Metrics)
			fmt.Fprintf(tw, "Call paths:\t%d\n", res.Cnodes)
			fmt.Fprintf(tw, "Locations:\t%d\n", res.Locations)
			fmt.Fprintf(tw, "Rows:\t%d\n", res.Rows)
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	addOutputFlags(f, &opts.outputDir, &opts.compressed)
	f.StringVarP(&opts.configPath, cliflags.Config.Name, cliflags.Config.Shorthand,
		cliflags.Config.Default(""), cliflags.Config.Usage())
	f.StringVar(&opts.name, cliflags.Name.Name, "", cliflags.Name.Usage())
	f.IntVar(&opts.ranks, cliflags.Ranks.Name, 0, cliflags.Ranks.Usage())
	f.Int64Var(&opts.seed, cliflags.Seed.Name, 0, cliflags.Seed.Usage())
	f.Var(humanizeutil.NewBytesValue(&opts.miscSize), cliflags.MiscSize.Name, cliflags.MiscSize.Usage())
	f.BoolVar(&opts.dumpConfig, cliflags.DumpConfig.Name, false, cliflags.DumpConfig.Usage())
	return cmd
}
