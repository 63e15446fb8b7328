// Package main provides the entry point for the relman CLI application.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version       = "0.1.0-dev"
	globalProject string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		reportError(os.Stderr, err)
		if !errors.Is(err, errCancelled) {
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, args []string) error {
	rootCmd := newRootCmd(false)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// newRootCmd builds the command tree. Inside a session the project is already
// open, so the project flag and the workspace commands are left out and the
// history commands are added.
func newRootCmd(inSession bool) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "relman",
		Short:         "Manage parent/child relations between data layers",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newLayersCmd(),
		newListCmd(),
		newShowCmd(),
		newCreateCmd(),
		newEditCmd(),
		newDuplicateCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newImportCmd(),
	)

	if inSession {
		rootCmd.AddCommand(
			newHistoryCmd(),
			newRollbackCmd(),
		)
		return rootCmd
	}

	rootCmd.PersistentFlags().StringVarP(&globalProject, "project", "p", "", "Project to operate on")
	rootCmd.AddCommand(
		newInitCmd(),
		newProjectsCmd(),
		newSessionCmd(),
	)

	return rootCmd
}
