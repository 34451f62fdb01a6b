// Package rawdisk opens a raw block device for positional I/O, hiding the
// platform differences between a plain file descriptor (Linux, and other
// POSIX systems by extension) and a Windows volume handle, which needs
// explicit share flags and sector-aligned transfers.
//
// pkg/store.PhysicalDiskStore is the only caller; nothing above the store
// layer should import this package directly.
package rawdisk

import "io"

// Handle is a raw device handle capable of positional reads and writes.
// *os.File satisfies it directly on POSIX platforms.
type Handle interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Sync() error
}

// Open opens the device at path for positional I/O. readWrite selects
// between read-only and read-write access.
func Open(path string, readWrite bool) (Handle, error) {
	return openDevice(path, readWrite)
}

// Geometry reports a device's logical sector size and total byte size.
// Detection is platform-specific: an ioctl on Linux, DeviceIoControl on
// Windows, and a seek-to-end fallback elsewhere.
func Geometry(h Handle) (sectorSize int64, size int64, err error) {
	return geometry(h)
}
