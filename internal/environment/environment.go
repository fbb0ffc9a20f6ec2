// Package environment renders conda environment files.
package environment

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/condamigrate/internal/core"
)

// CondaForge is always the first channel of a generated environment.
const CondaForge = "https://conda.anaconda.org/conda-forge"

// Environment is a conda environment: conda packages first, then the packages
// pip installs into it.
type Environment struct {
	Name         string
	Channels     []string
	Conda        []core.Package
	Pip          []core.Requirement
	ExtraIndexes []string
}

// New returns an environment using the conda-forge channel.
func New(name string) *Environment {
	return &Environment{Name: name, Channels: []string{CondaForge}}
}

// AddChannel appends a channel unless it is already listed.
func (e *Environment) AddChannel(ch string) {
	if !slices.Contains(e.Channels, ch) {
		e.Channels = append(e.Channels, ch)
	}
}

type document struct {
	Name         string   `yaml:"name"`
	Channels     []string `yaml:"channels"`
	Dependencies []any    `yaml:"dependencies"`
}

type pipSection struct {
	Pip []string `yaml:"pip"`
}

func (e *Environment) document() document {
	conda := make([]string, 0, len(e.Conda))
	hasPip := false
	for _, p := range e.Conda {
		conda = append(conda, p.FormatConda())
		if p.Name == "pip" {
			hasPip = true
		}
	}
	sort.Strings(conda)

	deps := make([]any, 0, len(conda)+2)
	for _, c := range conda {
		deps = append(deps, c)
	}

	if len(e.Pip) > 0 {
		if !hasPip {
			deps = append(deps, "pip")
		}
		lines := make([]string, 0, len(e.ExtraIndexes)+len(e.Pip))
		for _, url := range e.ExtraIndexes {
			lines = append(lines, "--extra-index-url "+url)
		}
		pkgs := make([]string, 0, len(e.Pip))
		for _, r := range e.Pip {
			pkgs = append(pkgs, r.FormatPip())
		}
		sort.Strings(pkgs)
		deps = append(deps, pipSection{Pip: append(lines, pkgs...)})
	}

	return document{Name: e.Name, Channels: e.Channels, Dependencies: deps}
}

// Write encodes the environment as YAML.
func (e *Environment) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e.document()); err != nil {
		return fmt.Errorf("encoding environment %s: %w", e.Name, err)
	}
	return enc.Close()
}

// WriteFile writes the environment to path, replacing any existing file.
func (e *Environment) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

