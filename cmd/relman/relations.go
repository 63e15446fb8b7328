package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ersonp/relman/internal/application/handlers"
	"github.com/ersonp/relman/internal/domain/services"
)

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	return cmd
}

func runList(cmd *cobra.Command, format string) error {
	if !slices.Contains(listFormats, format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", format, listFormats)
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		relations, err := d.RelationHandler.HandleRelations(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing relations: %w", err)
		}

		if format == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(relations)
		}

		printRelations(cmd.OutOrStdout(), relations)
		return nil
	})
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				rel, err := d.RelationHandler.HandleShow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRelation(cmd.OutOrStdout(), rel)
				return nil
			})
		},
	}
}

type relationFlags struct {
	name   string
	parent string
	child  string
	keys   []string
}

func (f *relationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Relationship name")
	cmd.Flags().StringVar(&f.parent, "parent", "", "Parent (referenced) layer")
	cmd.Flags().StringVar(&f.child, "child", "", "Child (referencing) layer")
	cmd.Flags().StringArrayVarP(&f.keys, "key", "k", nil, "Key pair parent_field:child_field (repeatable)")
}

func (f *relationFlags) empty() bool {
	return f.name == "" && f.parent == "" && f.child == "" && len(f.keys) == 0
}

func newCreateCmd() *cobra.Command {
	var flags relationFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a relation between two layers",
		Long: `Creates a relation from a parent (referenced) layer to a child
(referencing) layer, matched on one or more key pairs.
Missing values are asked for interactively when stdin is a terminal.

Examples:
  relman -p cadastre create --name Ownership --parent parcels --child owners \
    --key sheet:sheet_ref --key number:number_ref`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd, flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, flags relationFlags) error {
	ctx := cmd.Context()

	pairs, err := handlers.ParseKeyPairs(flags.keys)
	if err != nil {
		return err
	}

	in := services.RelationInput{
		Name:        flags.name,
		ParentLayer: flags.parent,
		ChildLayer:  flags.child,
		KeyPairs:    pairs,
	}

	return withDeps(ctx, func(d *Deps) error {
		complete := in.Name != "" && in.ParentLayer != "" && in.ChildLayer != "" && len(in.KeyPairs) > 0
		if !complete && isInteractive() {
			layers, err := d.RelationHandler.HandleLayers(ctx)
			if err != nil {
				return fmt.Errorf("listing layers: %w", err)
			}
			if err := promptRelation("New relationship", layers, &in); err != nil {
				return err
			}
		}

		rel, err := d.RelationHandler.HandleCreate(ctx, in)
		if err != nil {
			return fmt.Errorf("creating relation: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), success("Created relation: %s", rel.ID))
		fmt.Fprintf(cmd.OutOrStdout(), "  %s -[%s]-> %s (%s)\n",
			rel.ReferencedLayer, rel.Name, rel.ReferencingLayer, formatKeyPairs(rel.KeyPairs))
		return nil
	})
}

func newEditCmd() *cobra.Command {
	var flags relationFlags

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a relation",
		Long: `Changes the attributes of a relation. Only the given flags are changed;
--key replaces all key pairs. Without flags the relation is edited
interactively when stdin is a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args[0], flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runEdit(cmd *cobra.Command, id string, flags relationFlags) error {
	ctx := cmd.Context()

	pairs, err := handlers.ParseKeyPairs(flags.keys)
	if err != nil {
		return err
	}

	opts := handlers.EditOptions{
		Name:        flags.name,
		ParentLayer: flags.parent,
		ChildLayer:  flags.child,
		KeyPairs:    pairs,
	}

	return withDeps(ctx, func(d *Deps) error {
		if flags.empty() {
			if !isInteractive() {
				return fmt.Errorf("nothing to change (use --name, --parent, --child or --key)")
			}
			if err := promptEdit(cmd, d, id, &opts); err != nil {
				return err
			}
		}

		rel, err := d.RelationHandler.HandleEdit(ctx, id, opts)
		if err != nil {
			return fmt.Errorf("editing relation: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), success("Edited relation: %s", rel.ID))
		return nil
	})
}

func promptEdit(cmd *cobra.Command, d *Deps, id string, opts *handlers.EditOptions) error {
	current, err := d.RelationHandler.HandleShow(cmd.Context(), id)
	if err != nil {
		return err
	}
	layers, err := d.RelationHandler.HandleLayers(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing layers: %w", err)
	}

	in := services.InputFrom(current)
	if err := promptRelation("Edit relationship", layers, &in); err != nil {
		return err
	}

	*opts = handlers.EditOptions{
		Name:        in.Name,
		ParentLayer: in.ParentLayer,
		ChildLayer:  in.ChildLayer,
		KeyPairs:    in.KeyPairs,
	}
	return nil
}

func newDuplicateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "duplicate ID",
		Short: "Copy a relation under a new name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDuplicate(cmd, args[0], name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the copy")

	return cmd
}

func runDuplicate(cmd *cobra.Command, id, name string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		if name == "" && isInteractive() {
			source, err := d.RelationHandler.HandleShow(ctx, id)
			if err != nil {
				return err
			}
			if name, err = promptName("Name of the copy", source.Name); err != nil {
				return err
			}
		}

		rel, err := d.RelationHandler.HandleDuplicate(ctx, id, name)
		if err != nil {
			return fmt.Errorf("duplicating relation: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), success("Duplicated %s as %s: %s", id, rel.ID, rel.Name))
		return nil
	})
}

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [ID]",
		Short: "Delete a relation",
		Long:  "Deletes a relation. Without an ID the relation is picked from a list when stdin is a terminal.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string, force bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withDeps(ctx, func(d *Deps) error {
		var id string
		switch {
		case len(args) > 0:
			id = args[0]
		case isInteractive():
			items, err := d.RelationHandler.HandleList(ctx)
			if err != nil {
				return fmt.Errorf("listing relations: %w", err)
			}
			if id, err = promptRelationID("Delete relationship", items); err != nil {
				return err
			}
		default:
			return fmt.Errorf("specify a relation ID")
		}

		if !force {
			if !isInteractive() {
				return fmt.Errorf("refusing to delete %s without confirmation (use --force)", id)
			}
			rel, err := d.RelationHandler.HandleShow(ctx, id)
			if err != nil {
				return err
			}
			ok, err := confirmAction(fmt.Sprintf("Delete relationship %s (%s)?", rel.ID, rel.Name))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		rel, err := d.RelationHandler.HandleDelete(ctx, id)
		if err != nil {
			return fmt.Errorf("deleting relation: %w", err)
		}

		fmt.Fprintf(out, "Deleted relation: %s (%s)\n", rel.ID, rel.Name)
		return nil
	})
}
