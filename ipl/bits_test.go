package ipl

import (
	"math/big"
	"testing"
)

func TestPackExtractRoundTrip(t *testing.T) {
	sections := []PackSection{
		{Name: "a", Width: 4, Value: big.NewInt(0xF)},
		{Name: "b", Width: 32, Value: big.NewInt(0xDEADBEEF)},
		{Name: "c", Width: 60, Value: big.NewInt(12345)},
		{Name: "d", Width: 32, Value: big.NewInt(777)},
	}
	packed, err := PackBits(sections)
	if err != nil {
		t.Fatalf("PackBits: %v", err)
	}

	extracted, err := ExtractBits(packed, []Section{
		{Name: "a", Width: 4},
		{Name: "b", Width: 32},
		{Name: "c", Width: 60},
		{Name: "d", Width: 32},
	})
	if err != nil {
		t.Fatalf("ExtractBits: %v", err)
	}

	if extracted["a"].Int64() != 0xF {
		t.Errorf("a = %v, want 0xF", extracted["a"])
	}
	if extracted["b"].Int64() != 0xDEADBEEF {
		t.Errorf("b = %v, want 0xDEADBEEF", extracted["b"])
	}
	if extracted["c"].Int64() != 12345 {
		t.Errorf("c = %v, want 12345", extracted["c"])
	}
	if extracted["d"].Int64() != 777 {
		t.Errorf("d = %v, want 777", extracted["d"])
	}
}

func TestExtractBitsRejectsOverflow(t *testing.T) {
	_, err := ExtractBits(big.NewInt(0), []Section{{Name: "a", Width: 100}, {Name: "b", Width: 30}})
	if err == nil {
		t.Fatal("expected error for sections summing beyond 128 bits")
	}
}

func TestPackBitsTruncatesOverflowingValue(t *testing.T) {
	// A value wider than its declared width is truncated, not rejected.
	packed, err := PackBits([]PackSection{{Name: "a", Width: 4, Value: big.NewInt(0xFF)}})
	if err != nil {
		t.Fatalf("PackBits: %v", err)
	}
	if packed.Int64() != 0xF {
		t.Errorf("packed = %v, want 0xF (truncated)", packed)
	}
}

func TestHalvesRoundTrip(t *testing.T) {
	full := new(big.Int)
	full.SetString("12345678901234567890123456789012345", 10)
	full.And(full, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))

	lo, hi := FromBigInt(full)
	back := ToBigInt(lo, hi)
	if back.Cmp(full) != 0 {
		t.Errorf("round trip mismatch: got %v, want %v", back, full)
	}
}
