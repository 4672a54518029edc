package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

// minimalWasm is the empty module (magic + version, no sections) — enough
// for tests that only need a file to exist on disk and compile cleanly.
var minimalWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func writeManifest(t *testing.T, dir, yamlBody string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(yamlBody), 0644); err != nil {
		t.Fatalf("WriteFile(manifest.yaml): %v", err)
	}
}

func writeWasmFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), minimalWasm, 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestParseManifestValid(t *testing.T) {
	dir := t.TempDir()
	writeWasmFile(t, dir, "module.wasm")
	writeManifest(t, dir, `
name: greeter
version: "1.0.0"
exports:
  - greet
wasm:
  file: module.wasm
  memory_pages: 16
author: nibbleworks
license: MIT
`)

	m, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Name != "greeter" || m.Version != "1.0.0" {
		t.Errorf("got name=%q version=%q, want greeter/1.0.0", m.Name, m.Version)
	}
	if m.Wasm.MemoryPages != 16 {
		t.Errorf("MemoryPages = %d, want 16", m.Wasm.MemoryPages)
	}
	if m.WasmPath() != filepath.Join(dir, "module.wasm") {
		t.Errorf("WasmPath() = %s, want %s", m.WasmPath(), filepath.Join(dir, "module.wasm"))
	}
}

func TestParseManifestMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("expected an error parsing a directory with no manifest.yaml")
	}
	if _, ok := err.(*ManifestNotFoundError); !ok {
		t.Errorf("err = %T, want *ManifestNotFoundError", err)
	}
}

func TestParseManifestInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "name: [this is not: valid")

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("expected an error parsing malformed YAML")
	}
	if _, ok := err.(*ManifestParseError); !ok {
		t.Errorf("err = %T, want *ManifestParseError", err)
	}
}

func TestParseManifestMissingWasmFileFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
name: greeter
version: "1.0.0"
exports:
  - greet
wasm:
  file: missing.wasm
`)

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("expected an error when the referenced Wasm file doesn't exist")
	}
	if _, ok := err.(*WasmNotFoundError); !ok {
		t.Errorf("err = %T, want *WasmNotFoundError", err)
	}
}

func TestValidateRejectsReservedExportNames(t *testing.T) {
	for _, reserved := range []string{"alloc", "free", "call"} {
		dir := t.TempDir()
		writeWasmFile(t, dir, "module.wasm")
		writeManifest(t, dir, `
name: greeter
version: "1.0.0"
exports:
  - `+reserved+`
wasm:
  file: module.wasm
`)

		_, err := ParseManifest(dir)
		if err == nil {
			t.Fatalf("expected validation to reject export named %q", reserved)
		}
		verr, ok := err.(*ManifestValidationError)
		if !ok {
			t.Fatalf("err = %T, want *ManifestValidationError", err)
		}
		if verr.Field != "exports" {
			t.Errorf("Field = %q, want exports", verr.Field)
		}
	}
}

func TestValidateRequiresNameVersionWasmFileAndExports(t *testing.T) {
	cases := map[string]string{
		"missing name": `
version: "1.0.0"
exports: [greet]
wasm: {file: module.wasm}
`,
		"missing version": `
name: greeter
exports: [greet]
wasm: {file: module.wasm}
`,
		"missing wasm.file": `
name: greeter
version: "1.0.0"
exports: [greet]
`,
		"missing exports": `
name: greeter
version: "1.0.0"
wasm: {file: module.wasm}
`,
	}

	for desc, body := range cases {
		dir := t.TempDir()
		writeWasmFile(t, dir, "module.wasm")
		writeManifest(t, dir, body)

		_, err := ParseManifest(dir)
		if err == nil {
			t.Errorf("%s: expected a validation error", desc)
			continue
		}
		if _, ok := err.(*ManifestValidationError); !ok {
			t.Errorf("%s: err = %T, want *ManifestValidationError", desc, err)
		}
	}
}
