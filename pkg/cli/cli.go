// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cli implements the cubew command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"

	"github.com/cockroachdb/cubew/pkg/cli/cliflags"
	"github.com/cockroachdb/cubew/pkg/cli/exit"
	"github.com/cockroachdb/cubew/pkg/cube"
	"github.com/cockroachdb/cubew/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Proxy to allow overrides in tests.
var osStderr io.Writer = os.Stderr

// cliEnv is what the commands share.
type cliEnv struct {
	fs vfs.FS
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "output version information",
		Long: `
Output version information.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 1, 2, ' ', 0)
			fmt.Fprintf(tw, "Writer Version:  %s\n", cube.WriterVersion)
			fmt.Fprintf(tw, "Anchor Version:  %s\n", cube.AnchorVersion)
			fmt.Fprintf(tw, "CubePL Version:  %s\n", cube.CubePLVersion)
			fmt.Fprintf(tw, "Go Version:      %s\n", runtime.Version())
			fmt.Fprintf(tw, "Platform:        %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return tw.Flush()
		},
	}
}

func newCubewCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cubew [command] (flags)",
		Short: "CUBE report writer",
		Long: `Write CUBE performance reports: the built-in examples or synthetic
reports generated from a configuration.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.ApplyFlags()
		},
	}
	log.AddFlags(cmd.PersistentFlags())
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newError(err, exit.CommandLineFlagError())
	})
	cmd.AddCommand(
		newExampleCmd(env),
		newGenCmd(env),

		// Miscellaneous commands.
		newVersionCmd(),
	)
	return cmd
}

// Run runs the cubew command with the given arguments, writing reports to
// the local filesystem.
func Run(args []string) error {
	return run(context.Background(), &cliEnv{fs: vfs.Default}, args, os.Stdout)
}

func run(ctx context.Context, env *cliEnv, args []string, stdout io.Writer) error {
	cmd := newCubewCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	return cmd.ExecuteContext(ctx)
}

// Main is the entry point of the cubew binary. It does not return.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, &cliEnv{fs: vfs.Default}, os.Args[1:], os.Stdout)
	interrupted := ctx.Err() != nil
	stop()
	if err == nil {
		exit.WithCode(exit.Success())
	}
	fmt.Fprintf(osStderr, "ERROR: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(osStderr, "HINT: %s\n", hint)
	}
	if interrupted {
		exit.WithCode(exit.Interrupted())
	}
	exit.WithCode(exitCode(err))
}

// cliError attaches an exit code to an error.
type cliError struct {
	cause error
	code  exit.Code
}

func newError(err error, code exit.Code) error {
	return &cliError{cause: err, code: code}
}

func (e *cliError) Error() string { return e.cause.Error() }
func (e *cliError) Cause() error  { return e.cause }
func (e *cliError) Unwrap() error { return e.cause }

// Format implements fmt.Formatter.
func (e *cliError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// exitCode returns the code attached to err, or UnspecifiedError.
func exitCode(err error) exit.Code {
	var cerr *cliError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	return exit.UnspecifiedError()
}

func addOutputFlags(f *pflag.FlagSet, dir *string, compressed *bool) {
	f.StringVarP(dir, cliflags.OutputDir.Name, cliflags.OutputDir.Shorthand,
		cliflags.OutputDir.Default(""), cliflags.OutputDir.Usage())
	f.BoolVar(compressed, cliflags.Compressed.Name, false, cliflags.Compressed.Usage())
}
