package codec

import (
	"context"

	"github.com/nibbleworks/wasmipl/ipl"
)

// Free recursively reclaims any allocation an Encoder made while producing
// v, per spec §4.7. It never interprets payload contents beyond what the
// tag prescribes, and it is safe to call on a value whose guest call
// failed after a successful encode, provided v is exactly what Encode
// returned.
func Free(ctx context.Context, mem Memory, registry *FunctionRegistry, v ipl.Value) error {
	switch v.Tag() {
	case ipl.Void, ipl.Bool, ipl.Int, ipl.Uint, ipl.Float:
		return nil

	case ipl.Bytes, ipl.String, ipl.JSON:
		ptr, length := v.BytesLikeDetail()
		return mem.Free(ctx, ptr, length)

	case ipl.Function:
		ptr, originHost := v.FunctionDetail()
		if originHost {
			return registry.Release(ptr)
		}
		return nil

	case ipl.Array:
		ptr, length := v.ArrayDetail()
		if length == 0 {
			return nil
		}
		var firstErr error
		for i := uint32(0); i < length; i++ {
			slot := ptr + i*16
			lo, err := mem.ReadUint64LE(slot)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			hi, err := mem.ReadUint64LE(slot + 8)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := Free(ctx, mem, registry, ipl.FromHalves(lo, hi)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := mem.Free(ctx, ptr, 16*length); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr

	default:
		return &ipl.UnknownVariantError{Tag: v.Tag()}
	}
}
