package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl/codec"
	"github.com/nibbleworks/wasmipl/ipl"
)

// HostFunctionsImpl implements the "js" host module every guest imports,
// per spec §4.6: js.log for one-way diagnostic logging, and js.call for a
// guest to invoke a host-origin function value it was handed earlier.
type HostFunctionsImpl struct {
	logger   *zap.Logger
	registry *codec.FunctionRegistry
}

// NewHostFunctions creates the host function implementation backing the
// "js" namespace. The registry is shared with the Encoder/Decoder pair
// used for argument and return-value marshalling elsewhere in the bridge.
func NewHostFunctions(logger *zap.Logger, registry *codec.FunctionRegistry) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger:   logger.With(zap.String("component", "wasm-host")),
		registry: registry,
	}
}

// memoryFor builds a Memory helper bound to the calling module. Host
// functions receive the calling api.Module on every invocation, so there
// is no instance-scoped Memory to reuse ahead of time.
func (h *HostFunctionsImpl) memoryFor(mod api.Module) *Memory {
	return NewMemory(mod, mod.ExportedFunction("alloc"), mod.ExportedFunction("free"))
}

// log is js.log(lo, hi): decode the single IPL value and write it through
// the structured logger. A string value logs verbatim; anything else logs
// its Go representation, since a guest may log a bool, number, or array
// just as freely as a string.
func (h *HostFunctionsImpl) log(ctx context.Context, mod api.Module, lo, hi uint64) {
	dec := codec.NewDecoder(h.memoryFor(mod), h.registry)
	v, err := dec.Decode(ctx, ipl.FromHalves(lo, hi))
	if err != nil {
		h.logger.Error("failed to decode js.log argument", zap.Error(err))
		return
	}
	if s, ok := v.(string); ok {
		h.logger.Info(s)
		return
	}
	h.logger.Info(fmt.Sprintf("%v", v))
}

// call is js.call(fnLo, fnHi, argsLo, argsHi) -> (retLo, retHi): the guest
// invoking a host-origin function value, per spec §4.5/§4.6. fn must
// decode to a function of host origin and argsLo/argsHi to an array.
// There is no channel back to the guest other than the return value, so a
// malformed fn or args value, or an error returned by the host callback,
// traps the call instead of returning an error code; WrongOriginError,
// UnknownVariantError, FunctionRegistryKeyError and the callback's own
// error surface as the wasm runtime error wrapping whatever guest export
// called in.
func (h *HostFunctionsImpl) call(ctx context.Context, mod api.Module, fnLo, fnHi, argsLo, argsHi uint64) (uint64, uint64) {
	mem := h.memoryFor(mod)
	dec := codec.NewDecoder(mem, h.registry)
	enc := codec.NewEncoder(mem, h.registry)

	fnValue := ipl.FromHalves(fnLo, fnHi)
	if fnValue.Tag() != ipl.Function {
		panic(&ipl.UnknownVariantError{Tag: fnValue.Tag()})
	}
	ptr, originHost := fnValue.FunctionDetail()
	if !originHost {
		panic(&ipl.WrongOriginError{Wanted: "host", Got: "guest"})
	}
	fn, ok := h.registry.Lookup(ptr)
	if !ok {
		panic(&codec.FunctionRegistryKeyError{Key: ptr})
	}

	argsValue := ipl.FromHalves(argsLo, argsHi)
	if argsValue.Tag() != ipl.Array {
		panic(&ipl.UnknownVariantError{Tag: argsValue.Tag()})
	}
	decodedArgs, err := dec.Decode(ctx, argsValue)
	if err != nil {
		panic(err)
	}
	args := decodedArgs.([]any)

	result, callErr := fn(ctx, args)
	if callErr != nil {
		h.logger.Warn("host callback returned an error", zap.Error(callErr))
		panic(callErr)
	}

	retValue, err := enc.Encode(ctx, result)
	if err != nil {
		panic(err)
	}
	return retValue.Halves()
}
