package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relman/internal/infrastructure/config"
)

func TestAddProject(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, config.WriteDefault(tmpDir))

	err := addProject(tmpDir, "Cadastre 2024", "Land registry")
	require.NoError(t, err)

	projects, err := config.LoadProjects(tmpDir)
	require.NoError(t, err)

	entry, err := projects.Get("Cadastre 2024")
	require.NoError(t, err)
	assert.Equal(t, config.ProjectDir(tmpDir, "Cadastre 2024"), entry.Directory)
	assert.Equal(t, "Land registry", entry.Description)
}

func TestAddProject_Duplicate(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, addProject(tmpDir, "roads", ""))

	err := addProject(tmpDir, "roads", "")
	assert.ErrorContains(t, err, `project "roads" already exists`)
}

func TestAddProject_SameDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, addProject(tmpDir, "Water Pipes", ""))

	// Sanitizes to the same directory as "Water Pipes"
	err := addProject(tmpDir, "water-pipes", "")
	assert.ErrorContains(t, err, "already uses directory")
}
