// Package codec implements the value codec, host callback registry, array
// marshaller, and freer described in spec §4: the layer
// that turns ordinary Go values into ipl.Value (and back) by allocating in
// a guest module's linear memory as needed.
package codec

import "context"

// Memory is the linear-memory allocator and bytes-transfer interface the
// codec needs: alloc/free (spec §2.3) plus bounds-checked copy-in/copy-out
// and the little-endian uint64 accessors array marshalling uses to lay out
// element halves. internal/wasm.Memory implements this.
type Memory interface {
	Alloc(ctx context.Context, length uint32) (uint32, error)
	Free(ctx context.Context, ptr, length uint32) error
	ReadBytes(ptr, length uint32) ([]byte, error)
	WriteBytes(ptr uint32, data []byte) error
	ReadUint64LE(ptr uint32) (uint64, error)
	WriteUint64LE(ptr uint32, v uint64) error
	InBounds(ptr, length uint32) bool
}
