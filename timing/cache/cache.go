// Package cache provides a statistics cache for the simulator's data
// path, built on Akita cache components.
//
// The cache is interposed on the Memory stage's 8-byte reads and writes
// and is observationally transparent: it is write-through, so the
// backing memory always holds the architectural contents, and a failed
// bounds check bypasses it entirely. Its only output is hit/miss
// telemetry for the verbose trace mode.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/y86sim/emu"
)

// Config holds cache configuration parameters.
type Config struct {
	// Sets is the number of cache sets.
	Sets int
	// Associativity (number of ways).
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
}

// DefaultConfig returns the default geometry: a small direct-mapped
// cache with 16 sets of 64-byte blocks, 1 KiB in total.
func DefaultConfig() Config {
	return Config{
		Sets:          16,
		Associativity: 1,
		BlockSize:     64,
	}
}

// Statistics holds cache access counters. Accesses are counted at byte
// granularity: one 8-byte quad access contributes eight hit/miss
// events.
type Statistics struct {
	Reads     uint64
	Writes    uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// ReadBlock fetches size bytes starting at addr. Bytes outside the
	// store read as zero.
	ReadBlock(addr int64, size int) []byte
	// WriteByte stores a byte; the cache is write-through.
	WriteByte(addr int64, b byte)
}

// Cache is a set-associative statistics cache over a backing store.
// It implements emu.DataAccessor.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl

	// Data storage, indexed by setID*associativity + wayID.
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// New creates a cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	totalBlocks := config.Sets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the access counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// HitCount returns the number of byte accesses that hit.
func (c *Cache) HitCount() uint64 {
	return c.stats.Hits
}

// MissCount returns the number of byte accesses that missed.
func (c *Cache) MissCount() uint64 {
	return c.stats.Misses
}

// Reset invalidates all cache lines and clears the counters.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// ReadQuad reads a little-endian signed 64-bit value through the cache.
// The second return value is false when the access is out of range, in
// which case the cache is untouched.
func (c *Cache) ReadQuad(addr int64) (int64, bool) {
	if !emu.QuadInRange(addr) {
		return 0, false
	}
	c.stats.Reads++

	var v uint64
	for i := int64(0); i < 8; i++ {
		v |= uint64(c.readByte(addr+i)) << (8 * i)
	}
	return int64(v), true
}

// WriteQuad stores a little-endian signed 64-bit value through the
// cache. It returns false without committing anything when the access
// is out of range.
func (c *Cache) WriteQuad(addr int64, value int64) bool {
	if !emu.QuadInRange(addr) {
		return false
	}
	c.stats.Writes++

	for i := int64(0); i < 8; i++ {
		c.writeByte(addr+i, byte(uint64(value)>>(8*i)))
	}
	return true
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// readByte reads one byte, filling the containing block on a miss.
func (c *Cache) readByte(addr int64) byte {
	blockAddr, offset := c.split(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return c.dataStore[c.blockIndex(block)][offset]
	}

	c.stats.Misses++
	block = c.fill(blockAddr)
	return c.dataStore[c.blockIndex(block)][offset]
}

// writeByte writes one byte. The backing store is updated first; on a
// hit the cached copy is updated in place, on a miss the containing
// block is filled from the freshly written backing store.
func (c *Cache) writeByte(addr int64, b byte) {
	c.backing.WriteByte(addr, b)

	blockAddr, offset := c.split(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		c.dataStore[c.blockIndex(block)][offset] = b
		return
	}

	c.stats.Misses++
	c.fill(blockAddr)
}

// fill loads the block at blockAddr from the backing store into a
// victim way and returns it.
func (c *Cache) fill(blockAddr uint64) *akitacache.Block {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		// Cannot happen with a well-formed directory.
		return &akitacache.Block{}
	}
	if victim.IsValid {
		c.stats.Evictions++
	}

	copy(c.dataStore[c.blockIndex(victim)],
		c.backing.ReadBlock(int64(blockAddr), c.config.BlockSize))

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return victim
}

// split decomposes an address into its block-aligned address and the
// offset within the block.
func (c *Cache) split(addr int64) (blockAddr uint64, offset int) {
	bs := int64(c.config.BlockSize)
	return uint64(addr / bs * bs), int(addr % bs)
}
