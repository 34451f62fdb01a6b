package store

import (
	"fmt"
	"os"
)

// FileStore is a RandomAccessStore backed by a regular *os.File. It is the
// store used for ordinary disk-image files (VHD, raw images) as opposed to
// PhysicalDiskStore, which targets a raw block device.
type FileStore struct {
	file *os.File
}

// OpenFileStore opens path with the given flags (os.O_RDONLY, os.O_RDWR,
// os.O_CREATE, ...) and wraps it as a RandomAccessStore.
func OpenFileStore(path string, flag int, perm os.FileMode) (*FileStore, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	return &FileStore{file: f}, nil
}

// NewFileStore wraps an already-open file.
func NewFileStore(f *os.File) *FileStore {
	return &FileStore{file: f}
}

func (s *FileStore) ReadAt(buf []byte, offset int64) (int, error) {
	return s.file.ReadAt(buf, offset)
}

func (s *FileStore) WriteAt(buf []byte, offset int64) (int, error) {
	return s.file.WriteAt(buf, offset)
}

func (s *FileStore) Flush() error {
	return s.file.Sync()
}

func (s *FileStore) Size() (int64, error) {
	fi, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("store: stat: %w", err)
	}
	return fi.Size(), nil
}

func (s *FileStore) Capacity() (int64, error) {
	return s.Size()
}

// Truncate resizes the underlying file, used by VHD image creation to
// preallocate the fixed-extent payload plus trailing footer.
func (s *FileStore) Truncate(size int64) error {
	return s.file.Truncate(size)
}

// Close releases the underlying file handle.
func (s *FileStore) Close() error {
	return s.file.Close()
}

// File exposes the underlying *os.File for callers that need direct access.
func (s *FileStore) File() *os.File {
	return s.file
}
