package codec

import (
	"context"
	"testing"
)

func TestRegistryAssignsMonotonicKeys(t *testing.T) {
	r := NewFunctionRegistry()
	noop := HostFunc(func(ctx context.Context, args []any) (any, error) { return nil, nil })

	k0 := r.Register(noop)
	k1 := r.Register(noop)
	if k1 <= k0 {
		t.Fatalf("keys = %d, %d; want strictly increasing", k0, k1)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistryKeyNeverReusedAfterRelease(t *testing.T) {
	r := NewFunctionRegistry()
	noop := HostFunc(func(ctx context.Context, args []any) (any, error) { return nil, nil })

	k0 := r.Register(noop)
	if err := r.Release(k0); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// A naive key = len(table) scheme would hand k0 straight back out
	// here, since the table is empty again; the monotonic counter must
	// not repeat it.
	k1 := r.Register(noop)
	if k1 == k0 {
		t.Fatalf("Register reused released key %d", k0)
	}
}

func TestRegistryLookupMissingKey(t *testing.T) {
	r := NewFunctionRegistry()
	if _, ok := r.Lookup(999); ok {
		t.Fatal("Lookup of an unregistered key should report ok=false")
	}
}

func TestRegistryReleaseUnknownKeyErrors(t *testing.T) {
	r := NewFunctionRegistry()
	err := r.Release(42)
	if err == nil {
		t.Fatal("expected an error releasing an unregistered key")
	}
	if _, ok := err.(*FunctionRegistryKeyError); !ok {
		t.Errorf("err = %T, want *FunctionRegistryKeyError", err)
	}
}

func TestRegistryReleaseThenLookupFails(t *testing.T) {
	r := NewFunctionRegistry()
	noop := HostFunc(func(ctx context.Context, args []any) (any, error) { return nil, nil })
	key := r.Register(noop)

	if err := r.Release(key); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := r.Lookup(key); ok {
		t.Fatal("expected Lookup to fail after Release")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
