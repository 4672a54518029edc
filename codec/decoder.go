package codec

import (
	"context"

	"github.com/nibbleworks/wasmipl/ipl"
)

// Decoder turns an ipl.Value back into an ordinary Go value, per spec
// §4.4. Bytes-like variants are always copied out of linear memory, never
// returned as a live view (spec §3).
type Decoder struct {
	Mem      Memory
	Registry *FunctionRegistry

	// WrapGuestFunction, if set, wraps a decoded guest-origin function's
	// ptr into a richer callable (one that knows how to invoke the
	// guest's call dispatcher). If nil, Decode returns the plain
	// GuestFunctionRef{Ptr: ptr} marker instead.
	WrapGuestFunction func(ptr uint32) any
}

// NewDecoder creates a Decoder bound to a guest module's memory and the
// host's callback registry.
func NewDecoder(mem Memory, registry *FunctionRegistry) *Decoder {
	return &Decoder{Mem: mem, Registry: registry}
}

// Decode dispatches on v's tag per spec §4.4.
func (d *Decoder) Decode(ctx context.Context, v ipl.Value) (any, error) {
	switch v.Tag() {
	case ipl.Void:
		return nil, nil
	case ipl.Bool:
		return v.Bool(), nil
	case ipl.Int:
		return v.Int(), nil
	case ipl.Uint:
		return v.Uint(), nil
	case ipl.Float:
		return v.Float(), nil
	case ipl.Bytes:
		return d.decodeBytesLike(v)
	case ipl.String:
		raw, err := d.decodeBytesLike(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case ipl.JSON:
		raw, err := d.decodeBytesLike(v)
		if err != nil {
			return nil, err
		}
		return unmarshalJSON(raw)
	case ipl.Function:
		return d.decodeFunction(v)
	case ipl.Array:
		return d.decodeArray(ctx, v)
	default:
		return nil, &ipl.UnknownVariantError{Tag: v.Tag()}
	}
}

func (d *Decoder) decodeBytesLike(v ipl.Value) ([]byte, error) {
	ptr, length := v.BytesLikeDetail()
	if length == 0 {
		return []byte{}, nil
	}
	if !d.Mem.InBounds(ptr, length) {
		return nil, &ipl.MemoryFaultError{Ptr: ptr, Len: length, Reason: "bytes-like region out of bounds"}
	}
	return d.Mem.ReadBytes(ptr, length)
}

// decodeFunction returns a callable proxy carrying (origin, ptr), per
// spec §4.4. A host-origin function is the original registered callback
// itself — decoding it is a pure lookup, no wasm call involved. A
// guest-origin function is wrapped (or, with no wrapper configured,
// returned as the plain GuestFunctionRef marker) so that re-encoding it
// reproduces the original bits unchanged.
func (d *Decoder) decodeFunction(v ipl.Value) (any, error) {
	ptr, originHost := v.FunctionDetail()
	if originHost {
		fn, ok := d.Registry.Lookup(ptr)
		if !ok {
			return nil, &FunctionRegistryKeyError{Key: ptr}
		}
		return fn, nil
	}
	if d.WrapGuestFunction != nil {
		return d.WrapGuestFunction(ptr), nil
	}
	return GuestFunctionRef{Ptr: ptr}, nil
}

// decodeArray reads length contiguous 16-byte IPL slots at ptr and decodes
// each recursively, per spec §4.4 and §3's array invariants.
func (d *Decoder) decodeArray(ctx context.Context, v ipl.Value) ([]any, error) {
	ptr, length := v.ArrayDetail()
	if length == 0 {
		return []any{}, nil
	}
	if ptr%8 != 0 {
		return nil, &ipl.MemoryFaultError{Ptr: ptr, Len: 16 * length, Reason: "array region not 8-byte aligned"}
	}
	if !d.Mem.InBounds(ptr, 16*length) {
		return nil, &ipl.MemoryFaultError{Ptr: ptr, Len: 16 * length, Reason: "array region out of bounds"}
	}

	out := make([]any, length)
	for i := uint32(0); i < length; i++ {
		slot := ptr + i*16
		lo, err := d.Mem.ReadUint64LE(slot)
		if err != nil {
			return nil, err
		}
		hi, err := d.Mem.ReadUint64LE(slot + 8)
		if err != nil {
			return nil, err
		}
		elem, err := d.Decode(ctx, ipl.FromHalves(lo, hi))
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}
