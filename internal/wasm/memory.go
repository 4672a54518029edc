package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/nibbleworks/wasmipl/ipl"
)

// Memory provides safe, bounds-checked access to a guest module's linear
// memory, plus the two allocator calls (alloc/free) that own it.
//
// Wasm modules have their own isolated memory space that is separate from
// Go's memory. This type wraps wazero's api.Memory interface to provide:
// 1. Bounds checking on all read and write operations
// 2. Copy-out semantics on reads, so decoded buffers never alias memory
//    that may be freed once the call that produced them returns
// 3. The alloc/free calls needed to make and reclaim allocations on the
//    guest's behalf during argument/return encoding
type Memory struct {
	mem   api.Memory
	alloc api.Function
	free  api.Function
}

// NewMemory creates a memory helper bound to a module's linear memory and
// its exported alloc/free functions. alloc and/or free may be nil if the
// guest module does not export them; operations that need them then fail
// with FunctionNotFoundError instead of panicking.
func NewMemory(module api.Module, alloc, free api.Function) *Memory {
	return &Memory{mem: module.Memory(), alloc: alloc, free: free}
}

// Alloc calls the guest's exported alloc(len) -> ptr and fails with
// ipl.AllocationFailureError if it returns a null pointer.
func (m *Memory) Alloc(ctx context.Context, length uint32) (uint32, error) {
	if m.alloc == nil {
		return 0, &FunctionNotFoundError{FunctionName: "alloc"}
	}
	results, err := m.alloc.Call(ctx, uint64(length))
	if err != nil {
		return 0, &HostFunctionError{FunctionName: "alloc", Err: err}
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, &ipl.AllocationFailureError{RequestedLen: length}
	}
	return ptr, nil
}

// Free calls the guest's exported free(ptr, len). Safe to call on an
// allocation even if the call that produced it later failed — the freer
// never interprets payload contents, only the tag-prescribed shape.
func (m *Memory) Free(ctx context.Context, ptr, length uint32) error {
	if ptr == 0 {
		return nil
	}
	if m.free == nil {
		return &FunctionNotFoundError{FunctionName: "free"}
	}
	if _, err := m.free.Call(ctx, uint64(ptr), uint64(length)); err != nil {
		return &HostFunctionError{FunctionName: "free", Err: err}
	}
	return nil
}

// ReadBytes copies length bytes out of linear memory starting at ptr. The
// returned slice never aliases guest memory, per spec §3: a decoded bytes
// buffer handed to host code is always a copy, never a live view.
func (m *Memory) ReadBytes(ptr, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &ipl.MemoryFaultError{Ptr: ptr, Len: length, Reason: "read out of bounds"}
	}
	out := make([]byte, length)
	copy(out, buf)
	return out, nil
}

// WriteBytes writes data into linear memory at ptr.
func (m *Memory) WriteBytes(ptr uint32, data []byte) error {
	if !m.mem.Write(ptr, data) {
		return &ipl.MemoryFaultError{Ptr: ptr, Len: uint32(len(data)), Reason: "write out of bounds"}
	}
	return nil
}

// ReadUint64LE reads a little-endian uint64 at ptr — used to read one half
// of an array element's 16-byte IPL slot.
func (m *Memory) ReadUint64LE(ptr uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(ptr)
	if !ok {
		return 0, &ipl.MemoryFaultError{Ptr: ptr, Len: 8, Reason: "read out of bounds"}
	}
	return v, nil
}

// WriteUint64LE writes a little-endian uint64 at ptr.
func (m *Memory) WriteUint64LE(ptr uint32, v uint64) error {
	if !m.mem.WriteUint64Le(ptr, v) {
		return &ipl.MemoryFaultError{Ptr: ptr, Len: 8, Reason: "write out of bounds"}
	}
	return nil
}

// Size returns the current size of linear memory, in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// InBounds reports whether [ptr, ptr+length) lies within current linear
// memory bounds, without reading it.
func (m *Memory) InBounds(ptr, length uint32) bool {
	end := uint64(ptr) + uint64(length)
	return end <= uint64(m.Size())
}
