package manifest

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl/internal/wasm"
)

// Module is a manifest paired with its compiled Wasm module.
type Module struct {
	Manifest *Manifest
	Compiled *wasm.CompiledModule
	LoadedAt time.Time
}

// Name returns the module's declared name.
func (m *Module) Name() string {
	return m.Manifest.Name
}

// Version returns the module's declared version.
func (m *Module) Version() string {
	return m.Manifest.Version
}

// Exports returns the module's declared export names.
func (m *Module) Exports() []string {
	return m.Manifest.Exports
}

// DeclaresExport reports whether name is among the module's declared
// exports.
func (m *Module) DeclaresExport(name string) bool {
	for _, e := range m.Manifest.Exports {
		if e == name {
			return true
		}
	}
	return false
}

// Registry tracks loaded guest modules by name.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
	logger  *zap.Logger
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		modules: make(map[string]*Module),
		logger:  logger.With(zap.String("component", "manifest-registry")),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := mod.Manifest.Name
	if _, exists := r.modules[name]; exists {
		return &ModuleAlreadyRegisteredError{ModuleName: name}
	}

	r.modules[name] = mod
	r.logger.Info("Module registered", zap.String("name", name), zap.String("version", mod.Version()))
	return nil
}

// Get retrieves a module by name.
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered modules.
func (r *Registry) List() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Module, 0, len(r.modules))
	for _, mod := range r.modules {
		result = append(result, mod)
	}
	return result
}

// Unregister removes a module from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.modules, name)
	r.logger.Info("Module unregistered", zap.String("name", name))
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.modules)
}
