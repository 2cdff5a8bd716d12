// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/cubew/pkg/cli/cliflags"
	"github.com/cockroachdb/cubew/pkg/cli/exit"
	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/cubew/pkg/cube/cubegen"
	"github.com/cockroachdb/cubew/pkg/cube/layout"
	"github.com/cockroachdb/cubew/pkg/util/humanizeutil"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newExampleCmd(env *cliEnv) *cobra.Command {
	var opts struct {
		outputDir  string
		compressed bool
		locations  int
	}
	var names []string
	var long strings.Builder
	long.WriteString("\nWrite one of the built-in example reports to <scenario>.cubex.\n\n")
	for _, s := range cubegen.Scenarios() {
		names = append(names, s.Name)
		fmt.Fprintf(&long, "  %-8s  %s\n", s.Name, s.Description)
	}

	cmd := &cobra.Command{
		Use:       "example <scenario>",
		Short:     "write a built-in example report",
		Long:      long.String(),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := cubegen.LookupScenario(args[0])
			if !ok {
				return newError(errors.WithHintf(errors.Newf("unknown example %q", args[0]),
					"available examples: %s", strings.Join(names, ", ")), exit.CommandLineFlagError())
			}
			if opts.outputDir != "" {
				if err := env.fs.MkdirAll(opts.outputDir, 0755); err != nil {
					return errors.Wrapf(err, "creating %s", opts.outputDir)
				}
			}
			err := s.Run(cmd.Context(), cube.Options{
				FS:         env.fs,
				Dir:        opts.outputDir,
				Flavour:    cube.Master,
				Compressed: opts.compressed,
			}, cubegen.ScenarioParams{Locations: opts.locations})
			if err != nil {
				return err
			}
			path := env.fs.PathJoin(opts.outputDir, s.Name+layout.Extension)
			info, err := env.fs.Stat(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanizeutil.IBytes(info.Size()))
			return nil
		},
	}
	f := cmd.Flags()
	addOutputFlags(f, &opts.outputDir, &opts.compressed)
	f.IntVar(&opts.locations, cliflags.Locations.Name, cubegen.DefaultScenarioParams.Locations,
		cliflags.Locations.Usage())
	return cmd
}
