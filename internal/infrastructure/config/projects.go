package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectsConfig holds dynamic project definitions (read/write).
type ProjectsConfig struct {
	Projects map[string]ProjectEntry `yaml:"projects,omitempty"`
}

// ProjectEntry holds configuration for a specific project.
type ProjectEntry struct {
	Directory   string `yaml:"directory"`
	Description string `yaml:"description,omitempty"`
}

// LoadProjects loads project configuration from the .relman directory.
func LoadProjects(basePath string) (*ProjectsConfig, error) {
	data, err := os.ReadFile(ProjectsFilePath(basePath))
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &ProjectsConfig{
			Projects: make(map[string]ProjectEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading projects file: %w", err)
	}

	var cfg ProjectsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing projects file: %w", err)
	}

	if cfg.Projects == nil {
		cfg.Projects = make(map[string]ProjectEntry)
	}

	return &cfg, nil
}

// Save writes the projects configuration to the projects file.
func (p *ProjectsConfig) Save(basePath string) error {
	configDir := ConfigDir(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling projects config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, DefaultProjectsFile), data, 0600); err != nil {
		return fmt.Errorf("writing projects file: %w", err)
	}

	return nil
}

// Add adds a project to the configuration.
func (p *ProjectsConfig) Add(name string, entry ProjectEntry) {
	if p.Projects == nil {
		p.Projects = make(map[string]ProjectEntry)
	}
	p.Projects[name] = entry
}

// Remove removes a project from the configuration.
func (p *ProjectsConfig) Remove(name string) {
	if p.Projects != nil {
		delete(p.Projects, name)
	}
}

// Get returns the configuration for a specific project.
func (p *ProjectsConfig) Get(name string) (*ProjectEntry, error) {
	if len(p.Projects) == 0 {
		return nil, errors.New("no projects configured")
	}

	entry, ok := p.Projects[name]
	if !ok {
		names := p.Names()
		if len(names) > 5 {
			names = append(names[:5], "...")
		}
		return nil, fmt.Errorf("project %q not found (available: %s)", name, strings.Join(names, ", "))
	}

	return &entry, nil
}

// Exists checks if a project exists in the configuration.
func (p *ProjectsConfig) Exists(name string) bool {
	if p.Projects == nil {
		return false
	}
	_, ok := p.Projects[name]
	return ok
}

// Names returns the configured project names in sorted order.
func (p *ProjectsConfig) Names() []string {
	names := make([]string, 0, len(p.Projects))
	for name := range p.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectsExists checks if a projects config file exists in the given path.
func ProjectsExists(basePath string) bool {
	_, err := os.Stat(ProjectsFilePath(basePath))
	return err == nil
}
