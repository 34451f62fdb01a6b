// Package vdisk is the top-level façade: it defines the Disk/DiskImage
// interfaces every container format implements and dispatches Open to the
// right one by inspecting a file's signature (spec.md §6, SPEC_FULL.md §4).
package vdisk

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/store"
	"github.com/ostafen/vdisk/pkg/vhd"
)

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

// DiskImage is a Disk backed by a host-file container format.
type DiskImage interface {
	Disk
	Name() string
	BackingFiles() []string
	StorageSize() (int64, error)
	Close() error
}

// UnsupportedFormatError is returned for a recognized-but-unimplemented
// container format (spec.md §1's "stubs").
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("vdisk: unsupported container format %q", e.Format)
}

var (
	vhdxCookie  = []byte("vhdxfile")
	vdiPreamble = []byte("<<< Oracle VM VirtualBox Disk Image >>>")
	vmdkKDMV    = []byte("KDMV")
	vmdkCOWD    = []byte("COWD")
)

const sniffLen = 512

// Open recognizes a VHD by its footer cookie and a handful of other
// container formats by their magic bytes, returning UnsupportedFormatError
// for the latter rather than misreading them as a raw image. Anything with
// no recognized signature is opened as a raw, unpartitioned image.
func Open(path string) (DiskImage, error) {
	head, err := readHead(path)
	if err != nil {
		return nil, err
	}

	switch {
	case len(head) >= 8 && bytes.Equal(head[:8], vhdxCookie):
		return nil, &UnsupportedFormatError{Format: "vhdx"}
	case len(head) >= len(vdiPreamble) && bytes.Equal(head[:len(vdiPreamble)], vdiPreamble):
		return nil, &UnsupportedFormatError{Format: "vdi"}
	case len(head) >= 4 && (bytes.Equal(head[:4], vmdkKDMV) || bytes.Equal(head[:4], vmdkCOWD)):
		return nil, &UnsupportedFormatError{Format: "vmdk"}
	}

	if img, err := vhd.Open(path); err == nil {
		return &vhdImage{Image: img}, nil
	}

	return OpenRaw(path)
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vdisk: open %q: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("vdisk: read %q: %w", path, err)
	}
	return buf[:n], nil
}

// vhdImage adapts *vhd.Image to the DiskImage interface.
type vhdImage struct {
	*vhd.Image
}

func (i *vhdImage) Name() string { return "VHD" }

// RawImage is a disk image with no container format: every byte of the
// file is disk payload, and the CHS geometry used for display is the
// MBR-detection heuristic rather than the VHD algorithm (SPEC_FULL.md §4).
type RawImage struct {
	store store.RandomAccessStore
	path  string
	geom  geometry.Geometry
}

// OpenRaw opens path as a raw image: no footer, no partition metadata
// beyond what a later DiskLayout.Read call discovers.
func OpenRaw(path string) (*RawImage, error) {
	f, err := store.OpenFileStore(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	var geom geometry.Geometry
	if detected, err := geometry.DetectFromMBR(f, geometry.SectorSize); err == nil && detected != nil {
		geom = *detected
	}

	return &RawImage{store: f, path: path, geom: geom}, nil
}

func (r *RawImage) ReadAt(buf []byte, offset int64) (int, error) {
	return r.store.ReadAt(buf, offset)
}

func (r *RawImage) WriteAt(buf []byte, offset int64) (int, error) {
	return r.store.WriteAt(buf, offset)
}

func (r *RawImage) Flush() error {
	return r.store.Flush()
}

func (r *RawImage) Capacity() uint64 {
	size, err := r.store.Size()
	if err != nil {
		return 0
	}
	return uint64(size)
}

func (r *RawImage) Geometry() geometry.Geometry {
	return r.geom
}

func (r *RawImage) PhysicalSectorSize() uint32 {
	return geometry.SectorSize
}

func (r *RawImage) Name() string { return "Raw" }

func (r *RawImage) BackingFiles() []string { return []string{r.path} }

func (r *RawImage) StorageSize() (int64, error) {
	return r.store.Size()
}

func (r *RawImage) Close() error {
	if fs, ok := r.store.(*store.FileStore); ok {
		return fs.Close()
	}
	return nil
}

// diskStore adapts a Disk's fixed Capacity() uint64 to the store.Size/
// Capacity() (int64, error) pair pkg/disklayout's MBR/GPT readers expect,
// so any Disk can be scanned for a partition table with pkg/partition.Open.
type diskStore struct {
	Disk
}

// AsStore exposes d as a store.RandomAccessStore over its own addressable
// range, for feeding into pkg/partition.Open.
func AsStore(d Disk) store.RandomAccessStore {
	return diskStore{Disk: d}
}

func (s diskStore) Size() (int64, error) {
	return int64(s.Disk.Capacity()), nil
}

func (s diskStore) Capacity() (int64, error) {
	return int64(s.Disk.Capacity()), nil
}
