package vhd

import (
	"os"

	"github.com/google/uuid"
	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/store"
)

// Option configures an Image at construction time.
type Option func(*Image)

// WithLogger attaches a diagnostic logger, used for traces of dynamic-disk
// block allocation. A nil logger (the default)
// discards silently; this never affects parsing or I/O decisions.
func WithLogger(l *logger.Logger) Option {
	return func(img *Image) {
		img.log = l
		if se, ok := img.extent.(*SparseExtent); ok {
			se.SetLogger(l)
		}
	}
}

// MaxSize is the largest disk size the VHD format can address (spec.md §6).
const MaxSize uint64 = 2040 * 1024 * 1024 * 1024

// defaultBlockSize is the block granularity used by CreateDynamic. This
// matches the size every mainstream VHD writer defaults to; the format
// itself allows any value recorded in the sparse header.
const defaultBlockSize uint32 = 2 * 1024 * 1024

// Extent is the storage behind a VHD image: contiguous for a fixed disk,
// block-allocated for a dynamic or differencing one (spec.md §9's "small
// closed set of variants, dispatched by the façade").
type Extent interface {
	ReadAt(buf []byte, offset int64) (int, error)
	WriteAt(buf []byte, offset int64) (int, error)
	Flush() error
	BackingFiles() []string
	StorageSize() (int64, error)
	WriteFooter(f *Footer) error
	SparseHeader() *SparseHeader
}

// Image is a complete VHD container: a footer plus the extent it describes.
type Image struct {
	store  store.RandomAccessStore
	path   string
	footer Footer
	extent Extent
	log    *logger.Logger
}

func applyOptions(img *Image, opts []Option) *Image {
	for _, opt := range opts {
		opt(img)
	}
	return img
}

func checkMaxSize(size uint64) error {
	if size > MaxSize {
		return ErrDiskSizeTooBig
	}
	return nil
}

// CreateFixed lays out a new fixed-disk VHD: size bytes of zero-filled
// payload followed by a single footer (spec.md §4.5).
func CreateFixed(path string, size uint64, opts ...Option) (*Image, error) {
	if err := checkMaxSize(size); err != nil {
		return nil, err
	}

	f, err := store.OpenFileStore(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size) + FooterSize); err != nil {
		f.Close()
		return nil, err
	}

	footer := NewFixedFooter(size, uuid.New())
	extent := NewFixedExtent(f, path)
	if err := extent.WriteFooter(&footer); err != nil {
		f.Close()
		return nil, err
	}

	return applyOptions(&Image{store: f, path: path, footer: footer, extent: extent}, opts), nil
}

// CreateDynamic lays out a new dynamic-disk VHD: a footer copy at offset 0,
// the sparse header at offset 512, the BAT immediately after (sector
// aligned, every entry unused), and a trailing footer copy right after the
// BAT (spec.md §4.3/§4.4/§4.6). No blocks are allocated until written.
func CreateDynamic(path string, size uint64, opts ...Option) (*Image, error) {
	if err := checkMaxSize(size); err != nil {
		return nil, err
	}

	f, err := store.OpenFileStore(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	maxEntries := uint32((size + uint64(defaultBlockSize) - 1) / uint64(defaultBlockSize))
	bat := NewBAT(maxEntries)

	batSize := int64(maxEntries) * 4
	if batSize%SectorSize != 0 {
		batSize = (batSize/SectorSize + 1) * SectorSize
	}

	const sparseHeaderOffset = int64(FooterSize)
	batOffset := sparseHeaderOffset + SparseHeaderSize
	footerPos := batOffset + batSize

	if err := f.Truncate(footerPos + FooterSize); err != nil {
		f.Close()
		return nil, err
	}

	header := &SparseHeader{
		DataOffset:      DataOffsetNone,
		TableOffset:     uint64(batOffset),
		HeaderVersion:   0x00010000,
		MaxTableEntries: maxEntries,
		BlockSize:       defaultBlockSize,
	}
	if err := header.WriteAt(f, sparseHeaderOffset); err != nil {
		f.Close()
		return nil, err
	}
	if err := bat.WriteAt(f, batOffset); err != nil {
		f.Close()
		return nil, err
	}

	footer := NewDynamicFooter(size, uuid.New())
	extent := NewSparseExtent(f, path, header, bat, footerPos)
	if err := extent.WriteFooter(&footer); err != nil {
		f.Close()
		return nil, err
	}

	return applyOptions(&Image{store: f, path: path, footer: footer, extent: extent}, opts), nil
}

// CreateDifferencing is not supported: resolving and opening a parent chain
// is out of scope (spec.md §9 open question, SPEC_FULL.md §4).
func CreateDifferencing(path, parentPath string) (*Image, error) {
	return nil, ErrDifferencingUnsupported
}

// Open reads an existing VHD's footer and dispatches to the matching
// extent implementation.
func Open(path string, opts ...Option) (*Image, error) {
	f, err := store.OpenFileStore(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	capacity, err := f.Size()
	if err != nil {
		f.Close()
		return nil, err
	}
	if capacity < FooterSize {
		f.Close()
		return nil, ErrFileTooSmall
	}

	footerPos := capacity - FooterSize
	footer, err := ReadFooterAt(f, footerPos)
	if err != nil {
		f.Close()
		return nil, err
	}

	var extent Extent
	switch footer.Kind {
	case KindFixed:
		extent = NewFixedExtent(f, path)
	case KindDynamic, KindDifferencing:
		extent, err = OpenSparseExtent(f, path, footer.DataOffset)
		if err != nil {
			f.Close()
			return nil, err
		}
	default:
		f.Close()
		return nil, &UnknownTypeError{Code: uint32(footer.Kind)}
	}

	return applyOptions(&Image{store: f, path: path, footer: *footer, extent: extent}, opts), nil
}

func boundLen(capacity uint64, offset int64, length int) (int, bool) {
	if offset < 0 || uint64(offset) >= capacity {
		return 0, false
	}
	remaining := capacity - uint64(offset)
	if uint64(length) > remaining {
		return int(remaining), true
	}
	return length, true
}

func (img *Image) ReadAt(buf []byte, offset int64) (int, error) {
	n, ok := boundLen(img.footer.CurrentSize, offset, len(buf))
	if !ok {
		return 0, ErrReadBeyondEOD
	}
	return img.extent.ReadAt(buf[:n], offset)
}

func (img *Image) WriteAt(buf []byte, offset int64) (int, error) {
	n, ok := boundLen(img.footer.CurrentSize, offset, len(buf))
	if !ok {
		return 0, ErrWriteBeyondEOD
	}
	return img.extent.WriteAt(buf[:n], offset)
}

// Flush writes a fresh footer (capturing any state changes) and flushes
// the underlying extent and store.
func (img *Image) Flush() error {
	if err := img.extent.WriteFooter(&img.footer); err != nil {
		return err
	}
	return img.extent.Flush()
}

// Close flushes and releases the underlying file handle.
func (img *Image) Close() error {
	if err := img.Flush(); err != nil {
		return err
	}
	if fs, ok := img.store.(*store.FileStore); ok {
		return fs.Close()
	}
	return nil
}

func (img *Image) Kind() Kind                  { return img.footer.Kind }
func (img *Image) ID() uuid.UUID               { return img.footer.UniqueID }
func (img *Image) Footer() Footer              { return img.footer }
func (img *Image) SparseHeader() *SparseHeader { return img.extent.SparseHeader() }
func (img *Image) BackingFiles() []string      { return img.extent.BackingFiles() }
func (img *Image) StorageSize() (int64, error) { return img.extent.StorageSize() }
func (img *Image) Geometry() geometry.Geometry { return img.footer.Geometry }
func (img *Image) Capacity() uint64            { return img.footer.CurrentSize }
func (img *Image) PhysicalSectorSize() uint32  { return geometry.SectorSize }
