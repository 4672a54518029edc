package wasmipl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nibbleworks/wasmipl/codec"
	"github.com/nibbleworks/wasmipl/internal/wasm"
	"github.com/nibbleworks/wasmipl/ipl"
)

// FunctionValue is a guest-origin function value decoded from a Call
// result or a callback argument: a ptr into the guest's own function
// table, plus the Instance needed to actually invoke it. Re-encoding a
// FunctionValue re-emits its original (ptr, origin=guest) bits unchanged,
// via the embedded codec.GuestFunctionRef, per spec §4.3's identity
// requirement.
type FunctionValue struct {
	codec.GuestFunctionRef
	instance *Instance
}

// Invoke calls the guest's exported "call" dispatcher with this
// function's ptr and args, decoding the result back into a Go value.
func (f FunctionValue) Invoke(ctx context.Context, args ...any) (any, error) {
	callFn := f.instance.guest.Export("call")
	if callFn == nil {
		return nil, &wasm.FunctionNotFoundError{ModuleName: f.instance.guest.Name, FunctionName: "call"}
	}

	argsValue, err := f.instance.encoder.Encode(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments for guest function %d: %w", f.Ptr, err)
	}

	lo, hi := argsValue.Halves()
	results, err := callFn.Call(ctx, uint64(f.Ptr), lo, hi)
	if err != nil {
		_ = codec.Free(ctx, f.instance.mem, f.instance.registry, argsValue)
		return nil, &wasm.HostFunctionError{FunctionName: "call", Err: err}
	}

	if err := codec.Free(ctx, f.instance.mem, f.instance.registry, argsValue); err != nil {
		f.instance.logger.Warn("failed to free guest-call arguments", zap.Uint32("ptr", f.Ptr), zap.Error(err))
	}

	if len(results) != 2 {
		return nil, &wasm.HostFunctionError{
			FunctionName: "call",
			Err:          fmt.Errorf("expected 2 result values (one IPL value), got %d", len(results)),
		}
	}

	retValue := ipl.FromHalves(results[0], results[1])
	result, err := f.instance.decoder.Decode(ctx, retValue)
	if err != nil {
		_ = codec.Free(ctx, f.instance.mem, f.instance.registry, retValue)
		return nil, fmt.Errorf("decoding result of guest function %d: %w", f.Ptr, err)
	}

	if err := codec.Free(ctx, f.instance.mem, f.instance.registry, retValue); err != nil {
		f.instance.logger.Warn("failed to free guest-call result", zap.Uint32("ptr", f.Ptr), zap.Error(err))
	}

	return result, nil
}
