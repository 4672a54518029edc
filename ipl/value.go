package ipl

import (
	"math"
	"math/big"
)

// Value is the tagged 128-bit interchange value. It is always held as its
// two 64-bit transport halves, in (low, high) order, matching the wire
// shape described in spec §3: two consecutive wasm i64 arguments or
// results per logical IPL value.
type Value struct {
	Lo, Hi uint64
}

var (
	twoPow124 = new(big.Int).Lsh(big.NewInt(1), 124)
	mask124   = new(big.Int).Sub(twoPow124, big.NewInt(1))
)

// FromHalves reassembles a Value from its two transport halves.
func FromHalves(lo, hi uint64) Value {
	return Value{Lo: lo, Hi: hi}
}

// Halves returns the two 64-bit transport halves, (low, high).
func (v Value) Halves() (lo, hi uint64) {
	return v.Lo, v.Hi
}

// Tag extracts the 4-bit variant discriminator.
func (v Value) Tag() Tag {
	sections, _ := ExtractBits(ToBigInt(v.Lo, v.Hi), []Section{{"tag", TagWidth}})
	return Tag(sections["tag"].Uint64())
}

// detail returns the 124-bit payload as an unsigned big.Int.
func (v Value) detail() *big.Int {
	full := ToBigInt(v.Lo, v.Hi)
	sections, _ := ExtractBits(full, []Section{{"tag", TagWidth}, {"detail", DetailWidth}})
	return sections["detail"]
}

// newValue packs a tag and an unsigned 124-bit detail into a Value.
func newValue(tag Tag, detail *big.Int) Value {
	packed, err := PackBits([]PackSection{
		{Name: "tag", Width: TagWidth, Value: big.NewInt(int64(tag))},
		{Name: "detail", Width: DetailWidth, Value: detail},
	})
	if err != nil {
		// Unreachable: TagWidth+DetailWidth == 128 by construction.
		panic(err)
	}
	lo, hi := FromBigInt(packed)
	return Value{Lo: lo, Hi: hi}
}

// NewVoid builds the void variant.
func NewVoid() Value {
	return newValue(Void, big.NewInt(0))
}

// NewBool builds the bool variant.
func NewBool(b bool) Value {
	d := big.NewInt(0)
	if b {
		d.SetInt64(1)
	}
	return newValue(Bool, d)
}

// Bool extracts bit 0 of detail.
func (v Value) Bool() bool {
	return v.detail().Bit(0) == 1
}

// NewInt builds the int variant from a signed value in [-2^123, 2^123).
// Values outside that range are truncated to 124-bit two's complement —
// caller error, per spec §4.1's pack() contract.
func NewInt(n *big.Int) Value {
	pattern := new(big.Int)
	if n.Sign() < 0 {
		pattern.Add(n, twoPow124)
	} else {
		pattern.Set(n)
	}
	pattern.And(pattern, mask124)
	return newValue(Int, pattern)
}

// Int sign-extends the low 124 bits of detail as a signed two's complement
// integer.
func (v Value) Int() *big.Int {
	pattern := v.detail()
	if pattern.Bit(123) == 1 {
		return new(big.Int).Sub(pattern, twoPow124)
	}
	return pattern
}

// NewUint builds the uint variant from an unsigned value in [0, 2^124).
func NewUint(n *big.Int) Value {
	pattern := new(big.Int).And(n, mask124)
	return newValue(Uint, pattern)
}

// Uint extracts the low 124 bits of detail as an unsigned integer.
func (v Value) Uint() *big.Int {
	return v.detail()
}

// NewFloat builds the float variant: the IEEE-754 binary64 bit pattern
// occupies the low 64 bits of detail.
func NewFloat(f float64) Value {
	bits := math.Float64bits(f)
	return newValue(Float, new(big.Int).SetUint64(bits))
}

// Float reinterprets the low 64 bits of detail as a binary64 float.
func (v Value) Float() float64 {
	d := v.detail()
	low64 := new(big.Int).And(d, new(big.Int).SetUint64(^uint64(0)))
	return math.Float64frombits(low64.Uint64())
}

// bytesLikeDetail packs a (ptr,len) pair into the shared detail layout used
// by bytes, string, and json: bits 0-31 = ptr, bits 32-63 = len, bits
// 64-123 = 0.
func bytesLikeDetail(ptr, length uint32) *big.Int {
	d := new(big.Int).SetUint64(uint64(length))
	d.Lsh(d, 32)
	d.Or(d, new(big.Int).SetUint64(uint64(ptr)))
	return d
}

// NewBytesLike builds a bytes, string, or json variant from a (ptr,len)
// pair already materialised in linear memory. tag must be Bytes, String,
// or JSON.
func NewBytesLike(tag Tag, ptr, length uint32) Value {
	return newValue(tag, bytesLikeDetail(ptr, length))
}

// BytesLikeDetail extracts the (ptr,len) pair shared by bytes, string, and
// json variants.
func (v Value) BytesLikeDetail() (ptr, length uint32) {
	d := v.detail()
	mask32 := new(big.Int).SetUint64(0xFFFFFFFF)
	ptrBig := new(big.Int).And(d, mask32)
	lenBig := new(big.Int).And(new(big.Int).Rsh(d, 32), mask32)
	return uint32(ptrBig.Uint64()), uint32(lenBig.Uint64())
}

// NewFunction builds the function variant. ptr is either a guest function
// trampoline address (originHost=false) or a callback registry key
// (originHost=true).
func NewFunction(ptr uint32, originHost bool) Value {
	d := new(big.Int).SetUint64(uint64(ptr))
	if originHost {
		d.SetBit(d, 32, 1)
	}
	return newValue(Function, d)
}

// FunctionDetail extracts the function variant's ptr and origin.
func (v Value) FunctionDetail() (ptr uint32, originHost bool) {
	d := v.detail()
	mask32 := new(big.Int).SetUint64(0xFFFFFFFF)
	ptrBig := new(big.Int).And(d, mask32)
	return uint32(ptrBig.Uint64()), d.Bit(32) == 1
}

// NewArray builds the array variant. An empty array (length 0) MUST be
// encoded with detail=0 and no backing allocation, per spec §3.
func NewArray(ptr, length uint32) Value {
	if length == 0 {
		return newValue(Array, big.NewInt(0))
	}
	return newValue(Array, bytesLikeDetail(ptr, length))
}

// ArrayDetail extracts the array variant's (ptr,len) pair. A zero-length
// result means detail was 0 and no memory should be read at ptr.
func (v Value) ArrayDetail() (ptr, length uint32) {
	return v.BytesLikeDetail()
}
