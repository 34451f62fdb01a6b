package store

import (
	"fmt"

	"github.com/ostafen/vdisk/internal/rawdisk"
)

// DefaultSectorSize is assumed when a device's physical sector size cannot
// be determined, mirroring the teacher's DiskInfo.SectorSize fallback.
const DefaultSectorSize = 512

// PhysicalDiskStore is a RandomAccessStore backed by a raw block device
// (e.g. "/dev/sda" or "\\.\PhysicalDrive0"). Adapted from the teacher's
// internal/disk.Stat/DiskInfo, narrowed to pure positional I/O: device
// discovery, access-mode retry and image-format sniffing are the caller's
// concern here, not the store's. Platform differences in how a raw device
// handle is opened and measured live in internal/rawdisk.
type PhysicalDiskStore struct {
	dev        rawdisk.Handle
	sectorSize int64
	size       int64
}

// OpenPhysicalDiskStore opens a block device for positional I/O and probes
// its logical sector size and total size.
func OpenPhysicalDiskStore(path string, readWrite bool) (*PhysicalDiskStore, error) {
	path = rawdisk.NormalizePath(path)

	dev, err := rawdisk.Open(path, readWrite)
	if err != nil {
		return nil, fmt.Errorf("store: open device %q: %w", path, err)
	}

	ss, sz, err := rawdisk.Geometry(dev)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("store: determine size of %q: %w", path, err)
	}
	if ss == 0 {
		ss = DefaultSectorSize
	}

	return &PhysicalDiskStore{dev: dev, sectorSize: ss, size: sz}, nil
}

func (d *PhysicalDiskStore) ReadAt(buf []byte, offset int64) (int, error) {
	return d.dev.ReadAt(buf, offset)
}

func (d *PhysicalDiskStore) WriteAt(buf []byte, offset int64) (int, error) {
	return d.dev.WriteAt(buf, offset)
}

func (d *PhysicalDiskStore) Flush() error {
	return d.dev.Sync()
}

func (d *PhysicalDiskStore) Size() (int64, error) {
	return d.size, nil
}

func (d *PhysicalDiskStore) Capacity() (int64, error) {
	return d.size, nil
}

// SectorSize returns the device's logical sector size.
func (d *PhysicalDiskStore) SectorSize() int64 {
	return d.sectorSize
}

// Close releases the underlying device handle.
func (d *PhysicalDiskStore) Close() error {
	return d.dev.Close()
}
