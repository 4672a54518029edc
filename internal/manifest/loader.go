package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl/internal/wasm"
)

// Loader discovers manifest-described guest modules on disk and compiles
// them through a wasm.ModuleLoader, which handles the actual caching.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new module loader bound to a wasm runtime.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "manifest-loader")),
	}
}

// LoadModule loads a single module from a directory containing
// manifest.yaml and its referenced Wasm file.
func (l *Loader) LoadModule(ctx context.Context, dir string) (*Module, error) {
	l.logger.Debug("Loading module", zap.String("dir", dir))

	man, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading module",
		zap.String("name", man.Name),
		zap.String("version", man.Version),
	)

	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, man.WasmPath())
	if err != nil {
		return nil, &ModuleLoadError{ModuleName: man.Name, Err: err}
	}

	mod := &Module{
		Manifest: man,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Module loaded successfully",
		zap.String("name", man.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return mod, nil
}

// DiscoverModules scans each of paths for subdirectories containing a
// manifest.yaml and loads every one it finds.
func (l *Loader) DiscoverModules(ctx context.Context, paths []string) ([]*Module, error) {
	var modules []*Module
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning module directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Module path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			moduleDir := filepath.Join(basePath, entry.Name())

			mod, err := l.LoadModule(ctx, moduleDir)
			if err != nil {
				l.logger.Error("Failed to load module", zap.String("dir", moduleDir), zap.Error(err))
				errs = append(errs, err)
				continue
			}

			modules = append(modules, mod)
		}
	}

	if len(modules) > 0 && len(errs) > 0 {
		l.logger.Warn("Some modules failed to load",
			zap.Int("loaded", len(modules)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(modules) == 0 {
		return nil, &NoModulesFoundError{Paths: paths}
	}

	return modules, nil
}
