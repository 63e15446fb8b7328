package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/infrastructure/config"
)

const testProject = "Cadastre 2024"

// execute runs the CLI with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd(false)
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// setupWorkspace initializes a workspace in a temp directory with one project
// and the layers parcels(sheet, number) and owners(sheet_ref, number_ref).
func setupWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	orig := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = orig })

	_, _, err := execute(t, "", "init")
	require.NoError(t, err)
	_, _, err = execute(t, "", "projects", "create", testProject)
	require.NoError(t, err)
	_, _, err = execute(t, "", "-p", testProject, "layers", "add", "parcels", "--field", "sheet,number")
	require.NoError(t, err)
	_, _, err = execute(t, "", "-p", testProject, "layers", "add", "owners", "--field", "sheet_ref", "--field", "number_ref")
	require.NoError(t, err)

	return dir
}

func createOwnership(t *testing.T) string {
	t.Helper()

	out, _, err := execute(t, "", "-p", testProject, "create",
		"--name", "Ownership", "--parent", "parcels", "--child", "owners",
		"--key", "sheet:sheet_ref", "--key", "number:number_ref")
	require.NoError(t, err)
	require.Contains(t, out, "Created relation:")

	relations := listRelations(t)
	require.Len(t, relations, 1)
	return relations[0].ID
}

func listRelations(t *testing.T) []entities.Relation {
	t.Helper()

	out, _, err := execute(t, "", "-p", testProject, "list", "--format", "json")
	require.NoError(t, err)

	var relations []entities.Relation
	require.NoError(t, json.Unmarshal([]byte(out), &relations))
	return relations
}

func TestCLI_InitTwice(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "", "init")
	assert.ErrorContains(t, err, "already initialized")
}

func TestCLI_ProjectRequired(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "", "list")
	assert.ErrorContains(t, err, "project is required")

	_, _, err = execute(t, "", "-p", "unknown", "list")
	assert.ErrorContains(t, err, `project "unknown" not found`)
}

func TestCLI_ProjectsList(t *testing.T) {
	setupWorkspace(t)

	out, _, err := execute(t, "", "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, testProject)
}

func TestCLI_LayersList(t *testing.T) {
	setupWorkspace(t)

	out, _, err := execute(t, "", "-p", testProject, "layers")
	require.NoError(t, err)
	assert.Contains(t, out, "parcels")
	assert.Contains(t, out, "sheet_ref, number_ref")
}

func TestCLI_CreateAndShow(t *testing.T) {
	setupWorkspace(t)
	id := createOwnership(t)

	relations := listRelations(t)
	assert.Equal(t, "Ownership", relations[0].Name)
	assert.Equal(t, "parcels", relations[0].ReferencedLayer)
	assert.Equal(t, "owners", relations[0].ReferencingLayer)
	assert.Equal(t, []entities.KeyPair{
		{ParentField: "sheet", ChildField: "sheet_ref"},
		{ParentField: "number", ChildField: "number_ref"},
	}, relations[0].KeyPairs)

	out, _, err := execute(t, "", "-p", testProject, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Name:     Ownership")
	assert.Contains(t, out, "sheet -> sheet_ref")
}

func TestCLI_CreateInvalid(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "", "-p", testProject, "create",
		"--name", "Broken", "--parent", "parcels", "--child", "owners", "--key", "area:sheet_ref")
	assert.ErrorContains(t, err, "field not found")

	_, _, err = execute(t, "", "-p", testProject, "create", "--name", "Broken", "--key", "nocolon")
	assert.ErrorContains(t, err, "invalid key pair")

	assert.Empty(t, listRelations(t))
}

func TestCLI_EditAndDuplicate(t *testing.T) {
	setupWorkspace(t)
	id := createOwnership(t)

	_, _, err := execute(t, "", "-p", testProject, "edit", id, "--name", "Owners of parcels")
	require.NoError(t, err)

	_, _, err = execute(t, "", "-p", testProject, "edit", id)
	assert.ErrorContains(t, err, "nothing to change")

	out, _, err := execute(t, "", "-p", testProject, "duplicate", id, "--name", "Copy")
	require.NoError(t, err)
	assert.Contains(t, out, "Duplicated "+id)

	relations := listRelations(t)
	require.Len(t, relations, 2)
	assert.Equal(t, "Owners of parcels", relations[0].Name)
	assert.Equal(t, "Copy", relations[1].Name)
	assert.NotEqual(t, id, relations[1].ID)
}

func TestCLI_DeleteRequiresForce(t *testing.T) {
	setupWorkspace(t)
	id := createOwnership(t)

	_, _, err := execute(t, "", "-p", testProject, "delete", id)
	assert.ErrorContains(t, err, "--force")

	out, _, err := execute(t, "", "-p", testProject, "delete", id, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted relation: "+id)
	assert.Empty(t, listRelations(t))
}

func TestCLI_ExportImport(t *testing.T) {
	dir := setupWorkspace(t)
	id := createOwnership(t)

	stdout, _, err := execute(t, "", "-p", testProject, "export")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"`+id+`": {`)
	assert.Contains(t, stdout, `"name": "Ownership"`)

	path := filepath.Join(dir, "relations.json")
	_, stderr, err := execute(t, "", "-p", testProject, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Exported 1 relations")

	out, _, err := execute(t, "", "-p", testProject, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported: 0 relations, 1 skipped")

	_, _, err = execute(t, "", "-p", testProject, "delete", id, "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "", "-p", testProject, "import", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 1 relations would be imported")
	assert.Empty(t, listRelations(t))

	out, _, err = execute(t, "", "-p", testProject, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported: 1 relations")

	relations := listRelations(t)
	require.Len(t, relations, 1)
	assert.Equal(t, id, relations[0].ID)
}

func TestCLI_ExportCSVToStdout(t *testing.T) {
	setupWorkspace(t)
	id := createOwnership(t)

	stdout, stderr, err := execute(t, "", "-p", testProject, "export", "--format", "csv")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,referencing_layer,referenced_layer,parent_field,child_field", lines[0])
	assert.Equal(t, id+",Ownership,owners,parcels,sheet,sheet_ref", lines[1])
	assert.Equal(t, id+",Ownership,owners,parcels,number,number_ref", lines[2])
}

func TestCLI_ExportCompressed(t *testing.T) {
	dir := setupWorkspace(t)
	createOwnership(t)

	path := filepath.Join(dir, "relations.csv")
	_, stderr, err := execute(t, "", "-p", testProject, "export", "-o", path, "--compress")
	require.NoError(t, err)
	assert.Contains(t, stderr, path+".gz")

	_, err = os.Stat(path + ".gz")
	require.NoError(t, err)

	out, _, err := execute(t, "", "-p", testProject, "import", path+".gz", "--on-conflict", "overwrite")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported: 1 relations")
}

func TestCLI_ImportInvalidOptions(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "", "-p", testProject, "import", "x.json", "--on-conflict", "merge")
	assert.ErrorContains(t, err, "invalid conflict strategy")

	_, _, err = execute(t, "", "-p", testProject, "import", "x.json", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestCLI_Session(t *testing.T) {
	setupWorkspace(t)
	id := createOwnership(t)

	script := strings.Join([]string{
		"delete " + id + " --force",
		"create --name 'Second owners' --parent parcels --child owners --key sheet:sheet_ref",
		"history",
		"rollback 7",
		"rollback 0",
		"bogus",
		"exit",
		"list",
	}, "\n")

	out, errOut, err := execute(t, script, "-p", testProject, "session")
	require.NoError(t, err)

	assert.Contains(t, out, "Deleted relation: "+id)
	assert.Contains(t, out, "Deleted relationship: "+id)
	assert.Contains(t, out, "Created relationship: Second owners")
	assert.Contains(t, out, "Restored relation "+id)
	assert.Contains(t, errOut, "history index out of range")
	assert.Contains(t, errOut, `unknown command "bogus"`)

	relations := listRelations(t)
	require.Len(t, relations, 2)
	assert.Equal(t, "Second owners", relations[0].Name)
	assert.Equal(t, id, relations[1].ID)

	// The session's history is gone once it ends
	out, _, err = execute(t, "history\n", "-p", testProject, "session")
	require.NoError(t, err)
	assert.Contains(t, out, "No history entries.")
}

func TestCLI_ProjectsDelete(t *testing.T) {
	dir := setupWorkspace(t)
	createOwnership(t)

	_, _, err := execute(t, "", "projects", "delete", testProject)
	assert.ErrorContains(t, err, "contains 1 relations")

	_, _, err = execute(t, "", "projects", "delete", testProject, "--force")
	require.NoError(t, err)

	_, err = os.Stat(config.ProjectDir(dir, testProject))
	assert.True(t, os.IsNotExist(err))

	projects, err := config.LoadProjects(dir)
	require.NoError(t, err)
	assert.False(t, projects.Exists(testProject))
}
