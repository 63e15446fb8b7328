package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/relman/internal/infrastructure/config"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
		RunE:  runProjectsList,
	}

	cmd.AddCommand(
		newProjectsListCmd(),
		newProjectsCreateCmd(),
		newProjectsDeleteCmd(),
	)

	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE:  runProjectsList,
	}
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	printProjects(cmd.OutOrStdout(), projects)
	return nil
}

func printProjects(w io.Writer, projects *config.ProjectsConfig) {
	if len(projects.Projects) == 0 {
		fmt.Fprintln(w, "No projects configured.")
		fmt.Fprintln(w, "Use 'relman projects create NAME' to create a project.")
		return
	}

	t := newTable("NAME", "DIRECTORY", "DESCRIPTION")
	for _, name := range projects.Names() {
		entry := projects.Projects[name]
		t.Row(name, entry.Directory, entry.Description)
	}
	fmt.Fprintln(w, t.String())
}

func newProjectsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")

	return cmd
}

func runProjectsCreate(cmd *cobra.Command, name, description string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	out := cmd.OutOrStdout()

	// Initialize the workspace on first use
	if !config.Exists(cwd) {
		if err := config.WriteDefault(cwd); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		fmt.Fprintf(out, "Initialized relman in %s\n", config.ConfigDir(cwd))
	}

	if err := addProject(cwd, name, description); err != nil {
		return err
	}

	db, err := openProjectDB(cmd.Context(), cwd, name)
	if err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	fmt.Fprintln(out, success("Created project %q in %s", name, config.ProjectDir(cwd, name)))
	return nil
}

// addProject registers a project, rejecting duplicate names and names that
// sanitize to a directory already in use.
func addProject(basePath, name, description string) error {
	projects, err := config.LoadProjects(basePath)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	if projects.Exists(name) {
		return fmt.Errorf("project %q already exists", name)
	}

	dir := config.ProjectDir(basePath, name)
	for other, entry := range projects.Projects {
		if entry.Directory == dir {
			return fmt.Errorf("project %q already uses directory %s", other, dir)
		}
	}

	projects.Add(name, config.ProjectEntry{
		Directory:   dir,
		Description: description,
	})

	if err := projects.Save(basePath); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}
	return nil
}

func newProjectsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a project and its database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if the project contains relations")

	return cmd
}

func runProjectsDelete(cmd *cobra.Command, name string, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projects, err := config.LoadProjects(cwd)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}

	entry, err := projects.Get(name)
	if err != nil {
		return err
	}

	if !force {
		count, err := countProjectRelations(cmd, cwd, name)
		if err == nil && count > 0 {
			return fmt.Errorf("project %q contains %d relations, use --force to delete", name, count)
		}
	}

	projects.Remove(name)
	if err := projects.Save(cwd); err != nil {
		return fmt.Errorf("saving projects: %w", err)
	}

	if err := os.RemoveAll(entry.Directory); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not remove %s: %v\n", entry.Directory, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q\n", name)
	return nil
}

func countProjectRelations(cmd *cobra.Command, basePath, name string) (int, error) {
	db, err := openProjectDB(cmd.Context(), basePath, name)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return db.CountRelations(cmd.Context())
}
