package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ersonp/relman/internal/application/handlers"
	"github.com/ersonp/relman/internal/domain/services"
)

type exportFlags struct {
	format   string
	output   string
	compress bool
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export relations to a file",
		Long: `Exports all relations as a JSON object keyed by relation ID, or as CSV.
Files ending in .gz are gzip-compressed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "Output format (json, csv, auto)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVarP(&flags.compress, "compress", "z", false, "Gzip the output")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !slices.Contains(transferFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, transferFormats)
	}

	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		compress := flags.compress
		if !cmd.Flags().Changed("compress") && flags.output != "" {
			compress = d.Config.Export.Compress
		}

		result, err := d.TransferHandler.HandleExport(ctx, cmd.OutOrStdout(), handlers.ExportOptions{
			Output:   flags.output,
			Format:   flags.format,
			Indent:   d.Config.Export.Indent,
			Compress: compress,
		})
		if err != nil {
			return fmt.Errorf("exporting relations: %w", err)
		}

		if result.Path != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), success("Exported %d relations to %s", result.Count, result.Path))
		}
		return nil
	})
}

type importFlags struct {
	format     string
	dryRun     bool
	onConflict string
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import relations from JSON or CSV",
		Long: `Imports relations from a file written by export. Invalid entries are
reported and skipped; valid entries are imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", "", "Conflict handling (skip, overwrite; default from config)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	if !slices.Contains(transferFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, transferFormats)
	}

	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		onConflict := flags.onConflict
		if onConflict == "" {
			onConflict = d.Config.Import.OnConflict
		}
		strategy, err := services.ParseConflictStrategy(onConflict)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Importing %s...\n", filePath)

		result, err := d.TransferHandler.HandleImport(ctx, filePath, handlers.ImportOptions{
			Format:     flags.format,
			DryRun:     flags.dryRun,
			OnConflict: strategy,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		printImportResult(out, result, flags.dryRun)
		return nil
	})
}
