package codec

import (
	"context"
	"encoding/binary"
	"fmt"
)

// mockMemory is a bump-allocated, in-process stand-in for a guest
// module's linear memory, used to exercise the codec without a real
// wazero instance.
type mockMemory struct {
	buf  []byte
	next uint32

	freed map[uint32]uint32

	failAfter int // Alloc fails from the failAfter'th call on (0 disables)
	allocs    int
}

func newMockMemory(size uint32) *mockMemory {
	return &mockMemory{
		buf:   make([]byte, size),
		next:  8,
		freed: make(map[uint32]uint32),
	}
}

func (m *mockMemory) Alloc(ctx context.Context, length uint32) (uint32, error) {
	m.allocs++
	if m.failAfter != 0 && m.allocs >= m.failAfter {
		return 0, fmt.Errorf("mock alloc failure")
	}

	ptr := m.next
	aligned := (length + 7) / 8 * 8
	if aligned == 0 {
		aligned = 8
	}
	m.next += aligned
	if uint32(len(m.buf)) < m.next {
		return 0, fmt.Errorf("mock memory exhausted")
	}
	return ptr, nil
}

func (m *mockMemory) Free(ctx context.Context, ptr, length uint32) error {
	m.freed[ptr] = length
	return nil
}

func (m *mockMemory) ReadBytes(ptr, length uint32) ([]byte, error) {
	if !m.InBounds(ptr, length) {
		return nil, fmt.Errorf("mock memory: read [%d, %d) out of bounds", ptr, ptr+length)
	}
	out := make([]byte, length)
	copy(out, m.buf[ptr:ptr+length])
	return out, nil
}

func (m *mockMemory) WriteBytes(ptr uint32, data []byte) error {
	if !m.InBounds(ptr, uint32(len(data))) {
		return fmt.Errorf("mock memory: write [%d, %d) out of bounds", ptr, ptr+uint32(len(data)))
	}
	copy(m.buf[ptr:], data)
	return nil
}

func (m *mockMemory) ReadUint64LE(ptr uint32) (uint64, error) {
	if !m.InBounds(ptr, 8) {
		return 0, fmt.Errorf("mock memory: read8 at %d out of bounds", ptr)
	}
	return binary.LittleEndian.Uint64(m.buf[ptr:]), nil
}

func (m *mockMemory) WriteUint64LE(ptr uint32, v uint64) error {
	if !m.InBounds(ptr, 8) {
		return fmt.Errorf("mock memory: write8 at %d out of bounds", ptr)
	}
	binary.LittleEndian.PutUint64(m.buf[ptr:], v)
	return nil
}

func (m *mockMemory) InBounds(ptr, length uint32) bool {
	end := uint64(ptr) + uint64(length)
	return end <= uint64(len(m.buf))
}
