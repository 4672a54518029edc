package ipl

import (
	"fmt"
	"math/big"
)

// Section names an ordered, contiguous unsigned bit field to extract.
type Section struct {
	Name  string
	Width int
}

// PackSection names a field and the value to pack into it. Values wider
// than Width are truncated — that is caller error, not a codec error.
type PackSection struct {
	Name  string
	Width int
	Value *big.Int
}

// totalWidth is the bit width of a full Value: tag + detail.
const totalWidth = 128

// ToBigInt reassembles the 128-bit unsigned integer from its two
// little-endian-ordered 64-bit transport halves (low, high).
func ToBigInt(lo, hi uint64) *big.Int {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(lo))
	return v
}

// FromBigInt splits a 128-bit unsigned integer into its two transport
// halves. Bits above 128 are discarded.
func FromBigInt(v *big.Int) (lo, hi uint64) {
	mask64 := new(big.Int).SetUint64(^uint64(0))
	loBig := new(big.Int).And(v, mask64)
	hiBig := new(big.Int).And(new(big.Int).Rsh(v, 64), mask64)
	return loBig.Uint64(), hiBig.Uint64()
}

// ExtractBits consumes sections low-bits-first from value: the first
// section reads value's low Width bits, then value is conceptually shifted
// right by Width and the next section reads from there, and so on. It
// fails if the declared widths sum to more than 128 bits.
func ExtractBits(value *big.Int, sections []Section) (map[string]*big.Int, error) {
	total := 0
	for _, s := range sections {
		total += s.Width
	}
	if total > totalWidth {
		return nil, fmt.Errorf("ipl: section widths sum to %d bits, exceeds %d", total, totalWidth)
	}

	result := make(map[string]*big.Int, len(sections))
	cur := new(big.Int).Set(value)
	for _, s := range sections {
		mask := maskOf(s.Width)
		result[s.Name] = new(big.Int).And(cur, mask)
		cur = new(big.Int).Rsh(cur, uint(s.Width))
	}
	return result, nil
}

// PackBits assembles a 128-bit unsigned integer from ordered sections,
// reversing ExtractBits: the first section occupies the low bits, the next
// begins right after it, and so on. Each value is masked (truncated) to its
// declared width before being OR'd in.
func PackBits(sections []PackSection) (*big.Int, error) {
	total := 0
	for _, s := range sections {
		total += s.Width
	}
	if total > totalWidth {
		return nil, fmt.Errorf("ipl: section widths sum to %d bits, exceeds %d", total, totalWidth)
	}

	result := big.NewInt(0)
	offset := 0
	for _, s := range sections {
		masked := new(big.Int).And(s.Value, maskOf(s.Width))
		masked.Lsh(masked, uint(offset))
		result.Or(result, masked)
		offset += s.Width
	}
	return result, nil
}

func maskOf(width int) *big.Int {
	if width <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
}
