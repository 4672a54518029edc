package wasmipl

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/nibbleworks/wasmipl/internal/wasm"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := newOptions(nil)
	if o.memoryPages != 256 {
		t.Errorf("memoryPages = %d, want 256", o.memoryPages)
	}
	if o.maxInstances != 1 {
		t.Errorf("maxInstances = %d, want 1", o.maxInstances)
	}
	if o.debug {
		t.Error("debug = true, want false")
	}
	if o.logger == nil {
		t.Error("logger is nil, want a no-op default")
	}
}

func TestOptionsApplyOverDefaults(t *testing.T) {
	logger := zaptest.NewLogger(t)
	o := newOptions([]Option{
		WithMemoryPages(32),
		WithDebug(true),
		WithCacheDir("/tmp/wasmipl-cache"),
		WithLogger(logger),
	})

	if o.memoryPages != 32 {
		t.Errorf("memoryPages = %d, want 32", o.memoryPages)
	}
	if !o.debug {
		t.Error("debug = false, want true")
	}
	if o.cacheDir != "/tmp/wasmipl-cache" {
		t.Errorf("cacheDir = %q, want /tmp/wasmipl-cache", o.cacheDir)
	}
	if o.logger != logger {
		t.Error("logger was not overridden")
	}
}

// minimalWasm is the empty module (magic + version, no sections): no
// exports at all, including none of the reserved alloc/free/call trio.
var minimalWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestNewInstantiatesModuleWithNoReservedExports(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, minimalWasm, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close(ctx)

	if inst.ID() == "" {
		t.Error("expected a non-empty generated instance ID")
	}
}

func TestCallMissingExportErrors(t *testing.T) {
	ctx := context.Background()
	inst, err := New(ctx, minimalWasm, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "nonexistent")
	if err == nil {
		t.Fatal("expected an error calling an export the guest never declared")
	}
	if _, ok := err.(*wasm.FunctionNotFoundError); !ok {
		t.Errorf("err = %T, want *wasm.FunctionNotFoundError", err)
	}
}

func TestNewRejectsTruncatedBytecode(t *testing.T) {
	_, err := New(context.Background(), []byte{0x00, 0x61}, WithLogger(zap.NewNop()))
	if err == nil {
		t.Fatal("expected an error compiling truncated Wasm bytecode")
	}
}
