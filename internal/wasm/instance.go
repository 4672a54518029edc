package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// reservedExports are the guest exports the bridge itself depends on and
// caches eagerly at instantiation time, per spec §4.5/§4.7: alloc/free
// back every allocation the Encoder and Free make, and call is the
// dispatcher the host uses to invoke a guest-origin function value.
var reservedExports = []string{"alloc", "free", "call"}

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, generates UUID).
	InstanceID string

	// Context for cancellation.
	Context context.Context
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module api.Module

	// runtime tracks this instance for shutdown cleanup and duplicate-ID
	// detection; Close removes the entry it added at Instantiate time.
	runtime *Runtime

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module.
// Host functions are exported to the Wasm module.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	// Get compiled module from cache.
	compiledVal, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	compiled := compiledVal

	// Generate instance ID if not provided.
	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	} else if _, exists := m.runtime.GetInstance(instanceID); exists {
		return nil, &InstanceAlreadyExistsError{InstanceID: instanceID}
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	// Build host module with exported functions.
	hostBuilder := m.runtime.runtime.NewHostModuleBuilder("js")

	// Export host functions.
	if err := m.exportHostFunctions(hostBuilder); err != nil {
		return nil, fmt.Errorf("failed to export host functions: %w", err)
	}

	// Instantiate the host module once per runtime; a later Instantiate on
	// the same runtime reuses the "js" module already there.
	if m.runtime.runtime.Module("js") == nil {
		if _, err := hostBuilder.Instantiate(ctx); err != nil {
			return nil, fmt.Errorf("failed to instantiate host module: %w", err)
		}
	}

	// Instantiate the guest module with host functions.
	// This creates a sandboxed execution environment.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions() // No start functions: _start is not called

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	// Cache exported functions.
	exports := m.cacheExportedFunctions(module)

	// Create instance wrapper.
	instance := &Instance{
		module:    module,
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   exports,
	}

	// Track active instance.
	m.runtime.StoreInstance(instanceID, module)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// Close closes the instance, releases its resources, and stops the
// runtime from tracking it for shutdown cleanup.
func (i *Instance) Close(ctx context.Context) error {
	err := i.module.Close(ctx)
	i.runtime.DeleteInstance(i.ID)
	return err
}

// Module returns the underlying wazero module, for building a Memory
// helper or invoking an export not among the reserved set.
func (i *Instance) Module() api.Module {
	return i.module
}

// Export returns a cached reserved export (alloc/free/call), falling back
// to a direct lookup on the module for any other exported function name.
func (i *Instance) Export(name string) api.Function {
	if fn, ok := i.exports[name]; ok {
		return fn
	}
	return i.module.ExportedFunction(name)
}

// cacheExportedFunctions caches the guest exports the bridge itself calls
// on every Encode/Free/function-invocation, avoiding a module lookup on
// every call.
func (m *InstanceManager) cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)
	for _, name := range reservedExports {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}

// exportHostFunctions registers the "js" namespace's log and call
// functions for import by every guest module, per spec §4.6.
func (m *InstanceManager) exportHostFunctions(builder wazero.HostModuleBuilder) error {
	impl := m.hostFuncs

	builder.NewFunctionBuilder().
		WithFunc(impl.log).
		WithParameterNames("lo", "hi").
		Export("log")

	builder.NewFunctionBuilder().
		WithFunc(impl.call).
		WithParameterNames("fn_lo", "fn_hi", "args_lo", "args_hi").
		Export("call")

	return nil
}
