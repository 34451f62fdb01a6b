package vhd

import (
	"encoding/binary"
	"fmt"

	"github.com/ostafen/vdisk/pkg/store"
)

// UnusedBlockID is the BAT sentinel value marking a block as unallocated
// (spec.md §3 / §4.4).
const UnusedBlockID uint32 = 0xFFFFFFFF

// BAT is the in-memory Block Allocation Table: one big-endian u32 sector
// pointer per dynamic-disk block (spec.md §4.4).
type BAT struct {
	entries []uint32
}

// NewBAT returns a BAT with all entries marked unallocated.
func NewBAT(count uint32) *BAT {
	entries := make([]uint32, count)
	for i := range entries {
		entries[i] = UnusedBlockID
	}
	return &BAT{entries: entries}
}

// ReadBATAt reads count big-endian u32 entries at offset.
func ReadBATAt(s store.RandomAccessStore, offset int64, count uint32) (*BAT, error) {
	buf := make([]byte, int(count)*4)
	if err := store.ReadExactAt(s, buf, offset); err != nil {
		return nil, fmt.Errorf("vhd: read BAT at %d: %w", offset, err)
	}

	entries := make([]uint32, count)
	for i := range entries {
		entries[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return &BAT{entries: entries}, nil
}

// WriteAt serializes the whole table back to disk, big-endian, sector
// padded with 0xFF bytes (spec.md §4.4).
func (b *BAT) WriteAt(s store.RandomAccessStore, offset int64) error {
	dataLen := len(b.entries) * 4
	size := dataLen
	if size%SectorSize != 0 {
		size = (size/SectorSize + 1) * SectorSize
	}

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	for i, e := range b.entries {
		binary.BigEndian.PutUint32(buf[i*4:], e)
	}

	return store.WriteAllAt(s, buf, offset)
}

// Len returns the number of entries in the table.
func (b *BAT) Len() int {
	return len(b.entries)
}

// BlockID returns the sector pointer for block index, or
// ErrInvalidBlockIndex if out of range.
func (b *BAT) BlockID(index int) (uint32, error) {
	if index < 0 || index >= len(b.entries) {
		return 0, ErrInvalidBlockIndex
	}
	return b.entries[index], nil
}

// SetBlockID sets the sector pointer for block index. index must be
// valid; callers are expected to have checked it already (spec.md §4.4).
func (b *BAT) SetBlockID(index int, id uint32) {
	b.entries[index] = id
}

// WriteEntryAt persists a single updated BAT entry to its on-disk slot at
// tableOffset + index*4, big-endian (spec.md §4.6 step 7).
func WriteEntryAt(s store.RandomAccessStore, tableOffset int64, index int, id uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	return store.WriteAllAt(s, buf[:], tableOffset+int64(index)*4)
}
