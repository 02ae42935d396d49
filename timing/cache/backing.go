// Package cache provides a statistics cache for the simulator's data
// path, built on Akita cache components.
package cache

import "github.com/sarchlab/y86sim/emu"

// MemoryBacking adapts emu.Memory to the BackingStore interface.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a backing store over the given memory.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// ReadBlock fetches size bytes starting at addr. Bytes outside memory
// read as zero.
func (b *MemoryBacking) ReadBlock(addr int64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i], _ = b.memory.ReadByte(addr + int64(i))
	}
	return data
}

// WriteByte stores a byte into memory. Out-of-range writes are
// discarded.
func (b *MemoryBacking) WriteByte(addr int64, v byte) {
	b.memory.WriteByte(addr, v)
}
