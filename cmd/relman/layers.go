package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLayersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Manage the layers relations refer to",
		RunE:  runLayersList,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List layers and their fields",
			Args:  cobra.NoArgs,
			RunE:  runLayersList,
		},
		newLayersAddCmd(),
		newLayersDeleteCmd(),
	)

	return cmd
}

func runLayersList(cmd *cobra.Command, _ []string) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		layers, err := d.LayerHandler.HandleList(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing layers: %w", err)
		}
		printLayers(cmd.OutOrStdout(), layers)
		return nil
	})
}

func newLayersAddCmd() *cobra.Command {
	var (
		fields  []string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME --field FIELD...",
		Short: "Add a layer",
		Long: `Adds a layer with an ordered list of fields.

Examples:
  relman -p cadastre layers add parcels --field sheet --field number
  relman -p cadastre layers add owners --field sheet_ref,number_ref --replace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				layer, err := d.LayerHandler.HandleAdd(cmd.Context(), args[0], fields, replace)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("Saved layer %s (%d fields)", layer.Name, len(layer.Fields)))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&fields, "field", nil, "Field name (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the fields of an existing layer")

	return cmd
}

func newLayersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a layer no relation refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.LayerHandler.HandleRemove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted layer %s\n", args[0])
				return nil
			})
		},
	}
}
