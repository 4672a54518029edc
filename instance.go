package wasmipl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl/codec"
	"github.com/nibbleworks/wasmipl/internal/manifest"
	"github.com/nibbleworks/wasmipl/internal/wasm"
	"github.com/nibbleworks/wasmipl/ipl"
)

// Instance is a single instantiated guest module plus the codec state
// (memory helper, callback registry, encoder/decoder) needed to call its
// exports with ordinary Go values, per spec §4.5.
type Instance struct {
	runtime  *wasm.Runtime
	guest    *wasm.Instance
	mem      *wasm.Memory
	registry *codec.FunctionRegistry
	encoder  *codec.Encoder
	decoder  *codec.Decoder
	logger   *zap.Logger

	// declaredExports is the manifest's Exports list, when the instance
	// was built via NewFromManifest. Empty when built from a bare Wasm
	// source (New/NewFromFile/NewFromURL), in which case Call does not
	// restrict which export names it will look up.
	declaredExports []string
}

// options configures New.
type options struct {
	memoryPages  uint32
	debug        bool
	cacheDir     string
	maxInstances int
	logger       *zap.Logger
}

// Option configures instance creation.
type Option func(*options)

// WithMemoryPages sets the runtime's MemoryPages setting, in 64KB pages.
// The runtime logs it; it does not limit the guest's linear memory.
func WithMemoryPages(pages uint32) Option {
	return func(o *options) { o.memoryPages = pages }
}

// WithDebug sets the runtime's debug flag. The runtime logs it; it does not
// turn on wazero debug output.
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// WithCacheDir sets the runtime's cache directory setting. The runtime logs
// it; no compilation cache is created there.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// WithLogger overrides the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) *options {
	o := &options{
		memoryPages:  256,
		maxInstances: 1,
		logger:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// New compiles and instantiates a guest module from raw Wasm bytecode.
func New(ctx context.Context, wasmBytes []byte, opts ...Option) (*Instance, error) {
	o := newOptions(opts)

	runtime, err := wasm.NewRuntime(ctx, o.logger, &wasm.RuntimeConfig{
		MemoryPages:  o.memoryPages,
		DebugEnabled: o.debug,
		CacheDir:     o.cacheDir,
		MaxInstances: o.maxInstances,
	})
	if err != nil {
		return nil, err
	}

	loader := wasm.NewModuleLoader(runtime, o.logger)
	compiled, err := loader.LoadModuleFromMemory(ctx, "guest", wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return newInstance(ctx, runtime, compiled.Name, o.logger)
}

// NewFromFile compiles and instantiates a guest module read from path.
func NewFromFile(ctx context.Context, path string, opts ...Option) (*Instance, error) {
	o := newOptions(opts)

	runtime, err := wasm.NewRuntime(ctx, o.logger, &wasm.RuntimeConfig{
		MemoryPages:  o.memoryPages,
		DebugEnabled: o.debug,
		CacheDir:     o.cacheDir,
		MaxInstances: o.maxInstances,
	})
	if err != nil {
		return nil, err
	}

	loader := wasm.NewModuleLoader(runtime, o.logger)
	compiled, err := loader.LoadModuleFromFile(ctx, path)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return newInstance(ctx, runtime, compiled.Name, o.logger)
}

// NewFromURL fetches, compiles, and instantiates a guest module from an
// HTTP(S) URL.
func NewFromURL(ctx context.Context, url string, opts ...Option) (*Instance, error) {
	o := newOptions(opts)

	runtime, err := wasm.NewRuntime(ctx, o.logger, &wasm.RuntimeConfig{
		MemoryPages:  o.memoryPages,
		DebugEnabled: o.debug,
		CacheDir:     o.cacheDir,
		MaxInstances: o.maxInstances,
	})
	if err != nil {
		return nil, err
	}

	loader := wasm.NewModuleLoader(runtime, o.logger)
	compiled, err := loader.LoadModuleFromURL(ctx, url)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	return newInstance(ctx, runtime, compiled.Name, o.logger)
}

// NewFromManifest loads a guest module directory's manifest.yaml,
// compiles the Wasm file it declares, and instantiates it. Per spec §6's
// supplemented manifest feature, the manifest's declared Exports list
// becomes the set of names Call will accept: an undeclared export name
// fails the same way a genuinely missing one does, rather than falling
// through to an unrestricted ad hoc lookup on the compiled module.
func NewFromManifest(ctx context.Context, dir string, opts ...Option) (*Instance, error) {
	o := newOptions(opts)

	runtime, err := wasm.NewRuntime(ctx, o.logger, &wasm.RuntimeConfig{
		MemoryPages:  o.memoryPages,
		DebugEnabled: o.debug,
		CacheDir:     o.cacheDir,
		MaxInstances: o.maxInstances,
	})
	if err != nil {
		return nil, err
	}

	loader := manifest.NewLoader(runtime, o.logger)
	mod, err := loader.LoadModule(ctx, dir)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	inst, err := newInstance(ctx, runtime, mod.Compiled.Name, o.logger)
	if err != nil {
		return nil, err
	}
	inst.declaredExports = mod.Exports()
	return inst, nil
}

func newInstance(ctx context.Context, runtime *wasm.Runtime, moduleName string, logger *zap.Logger) (*Instance, error) {
	registry := codec.NewFunctionRegistry()
	hostFuncs := wasm.NewHostFunctions(logger, registry)
	instanceMgr := wasm.NewInstanceManager(runtime, hostFuncs, logger)

	guest, err := instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: moduleName,
		Context:    ctx,
	})
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	mem := wasm.NewMemory(guest.Module(), guest.Export("alloc"), guest.Export("free"))

	inst := &Instance{
		runtime:  runtime,
		guest:    guest,
		mem:      mem,
		registry: registry,
		logger:   logger.With(zap.String("component", "wasmipl-instance")),
	}

	inst.encoder = codec.NewEncoder(mem, registry)
	inst.decoder = codec.NewDecoder(mem, registry)
	inst.decoder.WrapGuestFunction = func(ptr uint32) any {
		return FunctionValue{GuestFunctionRef: codec.GuestFunctionRef{Ptr: ptr}, instance: inst}
	}

	return inst, nil
}

// ID returns the instance's generated identifier.
func (i *Instance) ID() string {
	return i.guest.ID
}

// Exports returns the manifest-declared callable export names, or nil if
// the instance was built without a manifest (New/NewFromFile/NewFromURL).
func (i *Instance) Exports() []string {
	return i.declaredExports
}

// Call invokes a guest export by name with args, per spec §4.5/§6: each
// argument is encoded as its own IPL value and flattened into the call's
// positional i64 sequence in order (two i64 per logical argument), not
// bundled into one array IPL — "greet(\"Daniel\")" reaches the guest as
// the string IPL's own two halves, not as a one-element array. The export
// returns one (lo, hi) pair decoded back into a Go value. Every
// allocation Call makes while encoding args, and every allocation the
// guest handed back in the return value, is freed before Call returns —
// the caller never owns a dangling guest-memory reference.
func (i *Instance) Call(ctx context.Context, export string, args ...any) (any, error) {
	if len(i.declaredExports) > 0 && !declaresExport(i.declaredExports, export) {
		return nil, &wasm.FunctionNotFoundError{ModuleName: i.guest.Name, FunctionName: export}
	}

	fn := i.guest.Export(export)
	if fn == nil {
		return nil, &wasm.FunctionNotFoundError{ModuleName: i.guest.Name, FunctionName: export}
	}

	encoded := make([]ipl.Value, 0, len(args))
	params := make([]uint64, 0, len(args)*2)
	for _, arg := range args {
		v, err := i.encoder.Encode(ctx, arg)
		if err != nil {
			for _, done := range encoded {
				_ = codec.Free(ctx, i.mem, i.registry, done)
			}
			return nil, fmt.Errorf("encoding arguments for '%s': %w", export, err)
		}
		encoded = append(encoded, v)
		lo, hi := v.Halves()
		params = append(params, lo, hi)
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		for _, v := range encoded {
			_ = codec.Free(ctx, i.mem, i.registry, v)
		}
		return nil, &wasm.HostFunctionError{FunctionName: export, Err: err}
	}

	for _, v := range encoded {
		if err := codec.Free(ctx, i.mem, i.registry, v); err != nil {
			i.logger.Warn("failed to free call argument", zap.String("export", export), zap.Error(err))
		}
	}

	if len(results) != 2 {
		return nil, &wasm.HostFunctionError{
			FunctionName: export,
			Err:          fmt.Errorf("expected 2 result values (one IPL value), got %d", len(results)),
		}
	}

	retValue := ipl.FromHalves(results[0], results[1])
	result, err := i.decoder.Decode(ctx, retValue)
	if err != nil {
		_ = codec.Free(ctx, i.mem, i.registry, retValue)
		return nil, fmt.Errorf("decoding result of '%s': %w", export, err)
	}

	if err := codec.Free(ctx, i.mem, i.registry, retValue); err != nil {
		i.logger.Warn("failed to free call result", zap.String("export", export), zap.Error(err))
	}

	return result, nil
}

// declaresExport reports whether name is among a manifest's declared
// exports.
func declaresExport(exports []string, name string) bool {
	for _, e := range exports {
		if e == name {
			return true
		}
	}
	return false
}

// Close releases the guest instance and its backing runtime.
func (i *Instance) Close(ctx context.Context) error {
	if err := i.guest.Close(ctx); err != nil {
		return err
	}
	return i.runtime.Close(ctx)
}
