// Package cli implements the schemagate standalone runner.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 42
)

const usageLine = "<username> <password> <config>"

// app carries the process streams and resources through every command.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	resources fs.FS

	// started is set once a command body begins; errors before that point
	// come from argument parsing.
	started bool
}

// Execute runs the CLI with args (without the program name) and returns the
// process exit code. resources, when non-nil, is searched for the config and
// changelog after the filesystem; host binaries pass an embed.FS here.
func Execute(args []string, stdout, stderr io.Writer, resources fs.FS) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: stdout, stderr: stderr, resources: resources}
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	switch {
	case err == nil:
		return ExitOK
	case !a.started:
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, root.UsageString())

		return ExitUsage
	default:
		fmt.Fprintf(stderr, "Migration error: %v\n", err)

		return ExitFailure
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "schemagate",
		Version: version,
		Short:   "Apply and verify database change sets",
		Long: `schemagate applies the change sets declared in a changelog to a database
exactly once each, records what it applied, and verifies that nothing is left
pending.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return errNoCommand
		},
	}

	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(
		a.command("run", "Apply every pending change set", a.run),
		a.command("verify", "Fail when any change set is pending", a.verify),
		a.command("status", "List applied and pending change sets", a.status),
	)

	return root
}

// command builds a subcommand taking the three positional arguments every
// schemagate command needs.
func (a *app) command(name, short string, body func(ctx context.Context, s *session) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " " + usageLine,
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.started = true

			s, err := a.open(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}

			defer s.close()

			return body(cmd.Context(), s)
		},
	}
}

var errNoCommand = errors.New("a command is required")
