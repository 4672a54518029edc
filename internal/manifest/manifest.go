// Package manifest parses and validates the manifest.yaml that
// accompanies a guest module directory: the module's declared name,
// version, exported entry points, and Wasm file location (spec's
// supplemented "guest module manifest" feature).
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest represents a guest module's manifest.yaml.
type Manifest struct {
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
	Exports []string   `yaml:"exports"`
	Wasm    WasmConfig `yaml:"wasm"`
	Author  string     `yaml:"author"`
	License string     `yaml:"license"`

	dir string
}

// WasmConfig describes the compiled module backing a manifest.
type WasmConfig struct {
	File string `yaml:"file"`
	// MemoryPages is the minimum number of 64KB pages the module expects
	// to be granted before instantiation.
	MemoryPages uint32 `yaml:"memory_pages"`
}

// ParseManifest reads and parses manifest.yaml from dir.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{Path: manifestPath, Err: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{Path: manifestPath, Err: err}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields and that the referenced Wasm file
// exists on disk.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{Path: m.Path(), Field: "name", Message: "name is required"}
	}
	if m.Version == "" {
		return &ManifestValidationError{Path: m.Path(), Field: "version", Message: "version is required"}
	}
	if m.Wasm.File == "" {
		return &ManifestValidationError{Path: m.Path(), Field: "wasm.file", Message: "wasm.file is required"}
	}
	if len(m.Exports) == 0 {
		return &ManifestValidationError{Path: m.Path(), Field: "exports", Message: "at least one export is required"}
	}

	for _, name := range m.Exports {
		if name == "alloc" || name == "free" || name == "call" {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports",
				Message: fmt.Sprintf("'%s' is a reserved export and must not be declared", name),
			}
		}
	}

	wasmPath := m.WasmPath()
	if _, err := os.Stat(wasmPath); os.IsNotExist(err) {
		return &WasmNotFoundError{ManifestPath: m.Path(), WasmFile: m.Wasm.File}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// WasmPath returns the path to the manifest's Wasm file, joined onto the
// manifest's directory as given (relative if that directory is relative).
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
