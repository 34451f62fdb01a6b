package vhd

import (
	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/store"
)

// invalidCacheIndex marks the bitmap cache as holding no block.
const invalidCacheIndex = -1

// SparseExtent is the dynamic-disk VHD extent: a Block Allocation Table
// maps fixed-size blocks to sector-addressed positions in the store, each
// block prefixed by a sector-presence bitmap (spec.md §4.6).
//
// Only one block's bitmap is kept in memory at a time. Reads and writes
// that span more than one block walk block by block, repopulating the
// cache as needed; a dirty cache is flushed to its on-disk slot before
// being evicted, and before Flush returns.
type SparseExtent struct {
	store store.RandomAccessStore
	path  string

	header *SparseHeader
	bat    *BAT

	cachedBlockIndex int
	cachedBitmap     []byte
	cachedDirty      bool

	// nextBlockPos is the store offset at which the next allocated
	// block will land: initially the current footer's position, then
	// advanced past each new block as it is appended.
	nextBlockPos int64

	// parent is always nil: differencing disks are recognized but their
	// parent chain is never opened or followed (spec.md §9, SPEC_FULL.md §4).
	parent *Image

	// log receives diagnostic traces of BAT growth; nil discards silently.
	log *logger.Logger
}

// SetLogger attaches a diagnostic logger to the extent. nil disables
// logging, which is also the zero-value behavior.
func (e *SparseExtent) SetLogger(l *logger.Logger) {
	e.log = l
}

// OpenSparseExtent reads the sparse header and BAT at dataOffset and
// returns a ready-to-use extent over s.
func OpenSparseExtent(s store.RandomAccessStore, path string, dataOffset uint64) (*SparseExtent, error) {
	header, err := ReadSparseHeaderAt(s, int64(dataOffset))
	if err != nil {
		return nil, err
	}

	bat, err := ReadBATAt(s, int64(header.TableOffset), header.MaxTableEntries)
	if err != nil {
		return nil, err
	}

	fileSize, err := s.Size()
	if err != nil {
		return nil, err
	}

	return &SparseExtent{
		store:            s,
		path:             path,
		header:           header,
		bat:              bat,
		cachedBlockIndex: invalidCacheIndex,
		cachedBitmap:     make([]byte, header.BitmapSize()),
		nextBlockPos:     fileSize - FooterSize,
	}, nil
}

// NewSparseExtent builds an extent over a freshly laid out header and BAT,
// with the footer slot positioned right after the BAT (spec.md §4.6).
func NewSparseExtent(s store.RandomAccessStore, path string, header *SparseHeader, bat *BAT, footerPos int64) *SparseExtent {
	return &SparseExtent{
		store:            s,
		path:             path,
		header:           header,
		bat:              bat,
		cachedBlockIndex: invalidCacheIndex,
		cachedBitmap:     make([]byte, header.BitmapSize()),
		nextBlockPos:     footerPos,
	}
}

func (e *SparseExtent) Flush() error {
	if err := e.flushCachedBitmap(); err != nil {
		return err
	}
	return e.store.Flush()
}

func (e *SparseExtent) BackingFiles() []string {
	return []string{e.path}
}

func (e *SparseExtent) StorageSize() (int64, error) {
	return e.store.Size()
}

// WriteFooter keeps both footer copies in sync: the stationary one at
// offset 0 and the trailing one at the current end of allocated data
// (spec.md §4.3's "footer copy at offset 0" invariant for dynamic disks).
func (e *SparseExtent) WriteFooter(f *Footer) error {
	buf, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := store.WriteAllAt(e.store, buf, 0); err != nil {
		return err
	}
	return store.WriteAllAt(e.store, buf, e.nextBlockPos)
}

func (e *SparseExtent) SparseHeader() *SparseHeader {
	return e.header
}

func (e *SparseExtent) flushCachedBitmap() error {
	if !e.cachedDirty {
		return nil
	}
	id, err := e.bat.BlockID(e.cachedBlockIndex)
	if err != nil {
		return err
	}
	pos := int64(id) * SectorSize
	if err := store.WriteAllAt(e.store, e.cachedBitmap, pos); err != nil {
		return err
	}
	e.cachedDirty = false
	return nil
}

// populateBlockBitmap makes the cache hold blockIndex's bitmap, reading it
// from disk if the block is allocated. It reports whether the block has
// data at all (false for an unallocated block, with the cache untouched).
func (e *SparseExtent) populateBlockBitmap(blockIndex int) (bool, error) {
	if e.cachedBlockIndex == blockIndex {
		return true, nil
	}

	id, err := e.bat.BlockID(blockIndex)
	if err != nil {
		return false, err
	}
	if id == UnusedBlockID {
		return false, nil
	}

	if err := e.flushCachedBitmap(); err != nil {
		return false, err
	}

	bitmapPos := int64(id) * SectorSize
	if err := store.ReadExactAt(e.store, e.cachedBitmap, bitmapPos); err != nil {
		return false, err
	}
	e.cachedBlockIndex = blockIndex
	return true, nil
}

func (e *SparseExtent) checkSectorMask(blockIndex, sectorInBlock int) (bool, error) {
	if e.cachedBlockIndex != blockIndex {
		ok, err := e.populateBlockBitmap(blockIndex)
		if err != nil || !ok {
			return false, err
		}
	}
	return bitmapSectorSet(e.cachedBitmap, sectorInBlock), nil
}

// sectorsArea reports whether sectorInBlock is present, and how many
// contiguous bytes (starting there) share that same presence, capped at
// toRead. This lets a read spanning several sectors of identical presence
// be satisfied with one store access instead of one per sector.
func (e *SparseExtent) sectorsArea(toRead uint32, blockIndex, sectorInBlock int) (bool, int, error) {
	present, err := e.checkSectorMask(blockIndex, sectorInBlock)
	if err != nil {
		return false, 0, err
	}

	toReadSectors := int(toRead / SectorSize)
	count := 1
	for count < toReadSectors {
		next, err := e.checkSectorMask(blockIndex, sectorInBlock+count)
		if err != nil {
			return false, 0, err
		}
		if next != present {
			break
		}
		count++
	}
	return present, count * SectorSize, nil
}

// calcSectorPos returns the store offset of a sector's payload: the
// block's bitmap plus the sector's position within the block's data area.
func (e *SparseExtent) calcSectorPos(blockIndex, sectorInBlock int) (int64, error) {
	id, err := e.bat.BlockID(blockIndex)
	if err != nil {
		return 0, err
	}
	return (int64(id)+int64(sectorInBlock))*SectorSize + int64(len(e.cachedBitmap)), nil
}

func (e *SparseExtent) readParentOrZero(offset int64, buf []byte) (int, error) {
	if e.parent != nil {
		return e.parent.ReadAt(buf, offset)
	}
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}

func (e *SparseExtent) readBlockData(blockIndex int, offsetInBlock uint32, buf []byte) (int, error) {
	sectorInBlock := int(offsetInBlock / SectorSize)
	offsetInSector := int(offsetInBlock % SectorSize)

	var present bool
	var dataBuf []byte
	var err error

	if offsetInSector != 0 || len(buf) < SectorSize {
		present, err = e.checkSectorMask(blockIndex, sectorInBlock)
		dataBuf = buf
		if rest := SectorSize - offsetInSector; len(dataBuf) > rest {
			dataBuf = dataBuf[:rest]
		}
	} else {
		var n int
		present, n, err = e.sectorsArea(uint32(len(buf)), blockIndex, sectorInBlock)
		dataBuf = buf[:n]
	}
	if err != nil {
		return 0, err
	}

	if present {
		pos, err := e.calcSectorPos(blockIndex, sectorInBlock)
		if err != nil {
			return 0, err
		}
		return e.store.ReadAt(dataBuf, pos+int64(offsetInSector))
	}

	offset := int64(blockIndex)*int64(e.header.BlockSize) + int64(offsetInBlock)
	return e.readParentOrZero(offset, dataBuf)
}

func (e *SparseExtent) readBlock(offset int64, buf []byte) (int, error) {
	blockSize := int64(e.header.BlockSize)
	blockIndex := int(offset / blockSize)
	offsetInBlock := uint32(offset % blockSize)

	toRead := uint32(len(buf))
	if max := e.header.BlockSize - offsetInBlock; toRead > max {
		toRead = max
	}
	blockBuf := buf[:toRead]

	inFile, err := e.populateBlockBitmap(blockIndex)
	if err != nil {
		return 0, err
	}
	if inFile {
		return e.readBlockData(blockIndex, offsetInBlock, blockBuf)
	}
	return e.readParentOrZero(offset, blockBuf)
}

func (e *SparseExtent) ReadAt(buf []byte, offset int64) (int, error) {
	read := 0
	for len(buf) > 0 {
		n, err := e.readBlock(offset, buf)
		if err != nil {
			return read, err
		}
		if n == 0 {
			break
		}
		buf = buf[n:]
		offset += int64(n)
		read += n
	}
	return read, nil
}

// allocateBlock lays out a brand-new block at the extent's growing edge
// and records it in the BAT (spec.md §4.6):
//  1. the block must currently be unused;
//  2. any dirty cached bitmap is flushed before the cache is repurposed;
//  3. the cache is reset to an all-clear bitmap for the new block;
//  4. the block's position is claimed and the edge advanced past it;
//  5. if that position overlaps the old trailing footer, the footer's
//     512 bytes are zeroed so no stale footer is left mid-file;
//  6. a single zero byte at the new edge extends the store, relying on
//     the store to zero-fill the hole;
//  7. the BAT entry is written to its on-disk slot.
func (e *SparseExtent) allocateBlock(blockIndex int) error {
	id, err := e.bat.BlockID(blockIndex)
	if err != nil {
		return err
	}
	if id != UnusedBlockID {
		return ErrUnexpectedBlockId
	}

	if err := e.flushCachedBitmap(); err != nil {
		return err
	}
	for i := range e.cachedBitmap {
		e.cachedBitmap[i] = 0
	}
	e.cachedBlockIndex = blockIndex
	e.cachedDirty = false

	currentSize, err := e.store.Size()
	if err != nil {
		return err
	}

	blockPos := e.nextBlockPos
	bitmapSize := int64(len(e.cachedBitmap))
	blockSize := int64(e.header.BlockSize)
	e.nextBlockPos = blockPos + bitmapSize + blockSize

	if blockPos < currentSize {
		zero := make([]byte, FooterSize)
		if err := store.WriteAllAt(e.store, zero, blockPos); err != nil {
			return err
		}
	}

	if _, err := e.store.WriteAt([]byte{0}, e.nextBlockPos-1); err != nil {
		return err
	}

	newID := uint32(blockPos / SectorSize)
	e.bat.SetBlockID(blockIndex, newID)
	e.log.Debugf("vhd: allocated block %d at sector %d", blockIndex, newID)
	return WriteEntryAt(e.store, int64(e.header.TableOffset), blockIndex, newID)
}

// writeSectorRMW rewrites a single sector that is only partially covered
// by the incoming write: the existing sector content (from the block, the
// parent, or zero) is read first, the new bytes are spliced in at
// offsetInSector, and the whole sector is written back and marked present.
func (e *SparseExtent) writeSectorRMW(blockIndex, sectorInBlock, offsetInSector int, data []byte) error {
	sectorBuf := make([]byte, SectorSize)
	if _, err := e.readBlockData(blockIndex, uint32(sectorInBlock)*SectorSize, sectorBuf); err != nil {
		return err
	}
	copy(sectorBuf[offsetInSector:], data)

	pos, err := e.calcSectorPos(blockIndex, sectorInBlock)
	if err != nil {
		return err
	}
	if err := store.WriteAllAt(e.store, sectorBuf, pos); err != nil {
		return err
	}

	if e.cachedBlockIndex != blockIndex {
		if _, err := e.populateBlockBitmap(blockIndex); err != nil {
			return err
		}
	}
	bitmapSetSector(e.cachedBitmap, sectorInBlock, true)
	e.cachedDirty = true
	return nil
}

// writeSectorsDirect writes whole sectors (len(data) a multiple of
// SectorSize) straight to their payload positions, with no read-back.
func (e *SparseExtent) writeSectorsDirect(blockIndex, sectorInBlock int, data []byte) error {
	pos, err := e.calcSectorPos(blockIndex, sectorInBlock)
	if err != nil {
		return err
	}
	if err := store.WriteAllAt(e.store, data, pos); err != nil {
		return err
	}

	if e.cachedBlockIndex != blockIndex {
		if _, err := e.populateBlockBitmap(blockIndex); err != nil {
			return err
		}
	}
	count := len(data) / SectorSize
	for i := 0; i < count; i++ {
		bitmapSetSector(e.cachedBitmap, sectorInBlock+i, true)
	}
	e.cachedDirty = true
	return nil
}

// writeBlock writes into a single block, allocating it first if unused,
// then splitting the request into an unaligned head sector (read-modify-
// write), a run of aligned whole sectors (direct write), and an unaligned
// tail sector (read-modify-write); any of the three may be empty.
func (e *SparseExtent) writeBlock(offset int64, data []byte) (int, error) {
	blockSize := int64(e.header.BlockSize)
	blockIndex := int(offset / blockSize)
	offsetInBlock := uint32(offset % blockSize)

	toWrite := uint32(len(data))
	if max := e.header.BlockSize - offsetInBlock; toWrite > max {
		toWrite = max
	}
	data = data[:toWrite]

	id, err := e.bat.BlockID(blockIndex)
	if err != nil {
		return 0, err
	}
	if id == UnusedBlockID {
		if err := e.allocateBlock(blockIndex); err != nil {
			return 0, err
		}
	}

	sectorInBlock := int(offsetInBlock / SectorSize)
	offsetInSector := int(offsetInBlock % SectorSize)
	written := 0

	if offsetInSector != 0 {
		n := SectorSize - offsetInSector
		if n > len(data) {
			n = len(data)
		}
		if err := e.writeSectorRMW(blockIndex, sectorInBlock, offsetInSector, data[:n]); err != nil {
			return written, err
		}
		data = data[n:]
		written += n
		sectorInBlock++
	}

	if wholeSectors := len(data) / SectorSize; wholeSectors > 0 {
		n := wholeSectors * SectorSize
		if err := e.writeSectorsDirect(blockIndex, sectorInBlock, data[:n]); err != nil {
			return written, err
		}
		data = data[n:]
		written += n
		sectorInBlock += wholeSectors
	}

	if len(data) > 0 {
		if err := e.writeSectorRMW(blockIndex, sectorInBlock, 0, data); err != nil {
			return written, err
		}
		written += len(data)
	}

	return written, nil
}

func (e *SparseExtent) WriteAt(buf []byte, offset int64) (int, error) {
	written := 0
	for len(buf) > 0 {
		n, err := e.writeBlock(offset, buf)
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
		buf = buf[n:]
		offset += int64(n)
		written += n
	}
	return written, nil
}
