// Package partition implements the block-device abstraction layered on top
// of disklayout: a PartitionedDisk wraps any Disk and exposes its
// constituent partitions as bounded sub-disks (spec.md §6).
package partition

import (
	"io"

	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/disklayout"
	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/reader"
	"github.com/ostafen/vdisk/pkg/store"
)

// extractBufferSize is the read-ahead window used by Partition.Reader.
const extractBufferSize = 64 * 1024

// Disk is the block-device abstraction every container format and
// physical-disk adapter presents (spec.md §6).
type Disk interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Flush() error
	Capacity() uint64
	Geometry() geometry.Geometry
	PhysicalSectorSize() uint32
}

// ErrReadBeyondEOD / ErrWriteBeyondEOD are returned when an access range
// falls outside a Partition's bounds.
var (
	ErrReadBeyondEOD  = store.ErrUnexpectedEOD
	ErrWriteBeyondEOD = store.ErrWriteZero
)

// Partition is a bounded view over a region of the underlying Disk,
// translating partition-relative offsets into disk-absolute ones.
type Partition struct {
	disk   Disk
	offset uint64
	length uint64
	kind   disklayout.PartitionKind
}

func (p *Partition) Offset() uint64                 { return p.offset }
func (p *Partition) Length() uint64                 { return p.length }
func (p *Partition) Kind() disklayout.PartitionKind { return p.kind }

func (p *Partition) boundLen(offset int64, length int) (int, bool) {
	if offset < 0 || uint64(offset) >= p.length {
		return 0, false
	}
	remaining := p.length - uint64(offset)
	if uint64(length) > remaining {
		return int(remaining), true
	}
	return length, true
}

func (p *Partition) ReadAt(buf []byte, offset int64) (int, error) {
	n, ok := p.boundLen(offset, len(buf))
	if !ok {
		return 0, store.ErrUnexpectedEOD
	}
	return p.disk.ReadAt(buf[:n], int64(p.offset)+offset)
}

func (p *Partition) WriteAt(buf []byte, offset int64) (int, error) {
	n, ok := p.boundLen(offset, len(buf))
	if !ok {
		return 0, store.ErrWriteZero
	}
	return p.disk.WriteAt(buf[:n], int64(p.offset)+offset)
}

// Reader returns a buffered io.ReadSeeker over the partition's contents,
// for streaming it out (e.g. to a file or stdout).
func (p *Partition) Reader() io.ReadSeeker {
	section := io.NewSectionReader(p, 0, int64(p.length))
	return reader.NewBufferedReadSeeker(section, extractBufferSize)
}

// PartitionedDisk wraps a Disk together with its resolved partition layout.
type PartitionedDisk struct {
	disk       Disk
	layout     *disklayout.Layout
	partitions []*Partition
}

// Open reads disk's partitioning scheme and builds the partition set. log
// may be nil, in which case layout discovery proceeds silently.
func Open(disk Disk, s store.RandomAccessStore, log *logger.Logger) (*PartitionedDisk, error) {
	layout, err := disklayout.Read(s, uint64(disk.PhysicalSectorSize()), log)
	if err != nil {
		return nil, err
	}

	partitions := make([]*Partition, len(layout.Partitions()))
	for i, info := range layout.Partitions() {
		partitions[i] = &Partition{
			disk:   disk,
			offset: info.Offset,
			length: info.Length,
			kind:   info.Kind,
		}
	}

	return &PartitionedDisk{disk: disk, layout: layout, partitions: partitions}, nil
}

// Scheme reports which partitioning scheme the disk uses.
func (d *PartitionedDisk) Scheme() disklayout.Scheme { return d.layout.Scheme() }

// Partitions returns every discovered partition.
func (d *PartitionedDisk) Partitions() []*Partition { return d.partitions }

// Disk returns the underlying whole-disk view.
func (d *PartitionedDisk) Disk() Disk { return d.disk }
