// Package emu provides functional Y86-64 emulation.
package emu

// MemSize is the size of the simulated memory in bytes.
const MemSize = 0x10000

// Memory is a fixed-size, byte-addressable linear store with
// little-endian 8-byte access helpers. Addresses are signed so that
// negative effective addresses fail the range check instead of wrapping.
type Memory struct {
	data [MemSize]byte
}

// NewMemory creates a zero-filled memory.
func NewMemory() *Memory {
	return &Memory{}
}

// QuadInRange reports whether an 8-byte access at addr lies entirely
// inside memory.
func QuadInRange(addr int64) bool {
	return addr >= 0 && addr+8 <= MemSize
}

// ReadByte reads a single byte. The second return value is false when
// addr is out of range, in which case the byte is 0.
func (m *Memory) ReadByte(addr int64) (byte, bool) {
	if addr < 0 || addr >= MemSize {
		return 0, false
	}
	return m.data[addr], true
}

// WriteByte stores a single byte. Out-of-range writes are silently
// discarded; the loader relies on this policy.
func (m *Memory) WriteByte(addr int64, b byte) {
	if addr < 0 || addr >= MemSize {
		return
	}
	m.data[addr] = b
}

// ReadQuad reads a little-endian signed 64-bit value. The second return
// value is false when any of the 8 bytes lies out of range, in which
// case the value is 0.
func (m *Memory) ReadQuad(addr int64) (int64, bool) {
	if !QuadInRange(addr) {
		return 0, false
	}
	var v uint64
	for i := int64(0); i < 8; i++ {
		v |= uint64(m.data[addr+i]) << (8 * i)
	}
	return int64(v), true
}

// WriteQuad stores a little-endian signed 64-bit value. When the bounds
// check fails no byte is committed and false is returned.
func (m *Memory) WriteQuad(addr int64, value int64) bool {
	if !QuadInRange(addr) {
		return false
	}
	for i := int64(0); i < 8; i++ {
		m.data[addr+i] = byte(uint64(value) >> (8 * i))
	}
	return true
}
