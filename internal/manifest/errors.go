package manifest

import "fmt"

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)", e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the Wasm file referenced in a manifest
// doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')", e.WasmFile, e.ManifestPath)
}

// ModuleLoadError occurs when loading a guest module fails.
type ModuleLoadError struct {
	ModuleName string
	Err        error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("failed to load module '%s': %v", e.ModuleName, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not found in the registry.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found", e.ModuleName)
}

// ModuleAlreadyRegisteredError occurs when registering a duplicate module.
type ModuleAlreadyRegisteredError struct {
	ModuleName string
}

func (e *ModuleAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("module '%s' is already registered", e.ModuleName)
}

// NoModulesFoundError occurs when no modules are found in the configured paths.
type NoModulesFoundError struct {
	Paths []string
}

func (e *NoModulesFoundError) Error() string {
	return fmt.Sprintf("no modules found in paths: %v", e.Paths)
}
