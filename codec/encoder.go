package codec

import (
	"context"
	"math/big"
	"reflect"

	"github.com/nibbleworks/wasmipl/ipl"
)

// hasGuestPtr is satisfied by a decoded guest-origin function value. The
// encoder uses it to recognise "this callable was previously decoded from
// a guest function IPL value" per spec §4.3, and re-emits its original
// bits unchanged instead of registering a new host callback.
type hasGuestPtr interface {
	GuestPtr() uint32
}

// GuestFunctionRef is the plain-data marker a Decoder produces for a
// guest-origin function value (origin=0). Encoding it back re-emits the
// same ptr with origin=0 — no new registration occurs, preserving the
// identity invariant in spec §8 ("Callback identity preservation").
type GuestFunctionRef struct {
	Ptr uint32
}

// GuestPtr implements hasGuestPtr.
func (r GuestFunctionRef) GuestPtr() uint32 { return r.Ptr }

// Encoder turns host Go values into ipl.Value, allocating in a guest
// module's linear memory as needed (spec §4.3). An Encoder keeps no
// per-call state and may be reused across calls; the owning call wrapper
// reclaims each value it produced by passing that value to Free.
type Encoder struct {
	Mem      Memory
	Registry *FunctionRegistry
}

// NewEncoder creates an Encoder bound to a guest module's memory and the
// host's callback registry.
func NewEncoder(mem Memory, registry *FunctionRegistry) *Encoder {
	return &Encoder{Mem: mem, Registry: registry}
}

// Encode infers v's tag per spec §4.2 and produces the corresponding
// ipl.Value, allocating in linear memory where the variant requires it.
// Encoding is transactional (spec §7): every variant below frees anything
// it allocated before propagating an error, so a failed Encode never
// leaks an allocation.
func (e *Encoder) Encode(ctx context.Context, v any) (ipl.Value, error) {
	return e.encode(ctx, v)
}

func (e *Encoder) encode(ctx context.Context, v any) (ipl.Value, error) {
	if v == nil {
		return ipl.NewVoid(), nil
	}

	switch x := v.(type) {
	case bool:
		return ipl.NewBool(x), nil
	case string:
		return e.encodeBytesLike(ctx, ipl.String, []byte(x))
	case []byte:
		return e.encodeBytesLike(ctx, ipl.Bytes, x)
	case *big.Int:
		return e.encodeBigInt(x), nil
	case HostFunc:
		return ipl.NewFunction(e.Registry.Register(x), true), nil
	case hasGuestPtr:
		return ipl.NewFunction(x.GuestPtr(), false), nil
	case []any:
		return e.encodeArray(ctx, x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.encodeBigInt(big.NewInt(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.encodeBigInt(new(big.Int).SetUint64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return ipl.NewFloat(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return e.encodeArray(ctx, elems)
	case reflect.Map, reflect.Struct:
		return e.encodeJSON(ctx, v)
	case reflect.Ptr:
		if rv.IsNil() {
			return ipl.NewVoid(), nil
		}
		return e.encode(ctx, rv.Elem().Interface())
	default:
		return ipl.Value{}, &ipl.UnsupportedTypeError{GoType: rv.Kind().String()}
	}
}

// encodeBigInt applies spec §4.2's sign rule: negative routes to int,
// non-negative (including zero) routes to uint.
func (e *Encoder) encodeBigInt(n *big.Int) ipl.Value {
	if n.Sign() < 0 {
		return ipl.NewInt(n)
	}
	return ipl.NewUint(n)
}

// encodeBytesLike allocates len(data) bytes, copies data in, and records
// (ptr,len) in the detail field. Zero-length payloads skip the allocation
// entirely — decode only ever reads the declared length, so there is
// nothing at ptr to read regardless of its value, mirroring the empty
// array's documented detail=0 shortcut.
func (e *Encoder) encodeBytesLike(ctx context.Context, tag ipl.Tag, data []byte) (ipl.Value, error) {
	if len(data) == 0 {
		return ipl.NewBytesLike(tag, 0, 0), nil
	}
	ptr, err := e.Mem.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return ipl.Value{}, err
	}
	if err := e.Mem.WriteBytes(ptr, data); err != nil {
		_ = e.Mem.Free(ctx, ptr, uint32(len(data)))
		return ipl.Value{}, err
	}
	return ipl.NewBytesLike(tag, ptr, uint32(len(data))), nil
}

// encodeJSON canonically serialises v and stores it as the json variant.
func (e *Encoder) encodeJSON(ctx context.Context, v any) (ipl.Value, error) {
	data, err := marshalCanonicalJSON(v)
	if err != nil {
		return ipl.Value{}, err
	}
	return e.encodeBytesLike(ctx, ipl.JSON, data)
}

// encodeArray lays out len(elems) IPL values contiguously in linear
// memory, recursively encoding each element, per spec §4.3. An empty array
// skips the allocation and emits detail=0, per spec §3.
func (e *Encoder) encodeArray(ctx context.Context, elems []any) (ipl.Value, error) {
	if len(elems) == 0 {
		return ipl.NewArray(0, 0), nil
	}

	ptr, err := e.Mem.Alloc(ctx, uint32(16*len(elems)))
	if err != nil {
		return ipl.Value{}, err
	}

	encoded := make([]ipl.Value, 0, len(elems))
	for _, elem := range elems {
		v, err := e.encode(ctx, elem)
		if err != nil {
			for _, done := range encoded {
				_ = Free(ctx, e.Mem, e.Registry, done)
			}
			_ = e.Mem.Free(ctx, ptr, uint32(16*len(elems)))
			return ipl.Value{}, err
		}
		encoded = append(encoded, v)
	}

	for i, v := range encoded {
		lo, hi := v.Halves()
		slot := ptr + uint32(i*16)
		err := e.Mem.WriteUint64LE(slot, lo)
		if err == nil {
			err = e.Mem.WriteUint64LE(slot+8, hi)
		}
		if err != nil {
			for _, done := range encoded {
				_ = Free(ctx, e.Mem, e.Registry, done)
			}
			_ = e.Mem.Free(ctx, ptr, uint32(16*len(elems)))
			return ipl.Value{}, err
		}
	}

	return ipl.NewArray(ptr, uint32(len(elems))), nil
}
