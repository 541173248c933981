package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifestYAML []byte

//go:embed aliases.yaml
var defaultAliasesYAML []byte

type manifestFile struct {
	Features []Descriptor `yaml:"features"`
}

type aliasesFile struct {
	Aliases []AliasEntry `yaml:"aliases"`
}

// Default returns the embedded manifest matching the shipped model artifact.
func Default() *Manifest {
	m, err := parseManifest(defaultManifestYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded manifest.yaml invalid: %v", err))
	}
	return m
}

// DefaultAliases returns the embedded alias table.
func DefaultAliases() *AliasTable {
	t, err := parseAliases(defaultAliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded aliases.yaml invalid: %v", err))
	}
	return t
}

// Load reads a manifest from a YAML file. An empty path loads the embedded
// default.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := parseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// LoadAliases reads an alias table from a YAML file. An empty path loads
// the embedded default.
func LoadAliases(path string) (*AliasTable, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	t, err := parseAliases(data)
	if err != nil {
		return nil, fmt.Errorf("aliases %s: %w", path, err)
	}
	return t, nil
}

func parseManifest(data []byte) (*Manifest, error) {
	var f manifestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse manifest yaml: %w", err)
	}
	return New(f.Features)
}

func parseAliases(data []byte) (*AliasTable, error) {
	var f aliasesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse aliases yaml: %w", err)
	}
	return NewAliasTable(f.Aliases)
}
