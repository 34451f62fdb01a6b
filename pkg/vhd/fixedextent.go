package vhd

import "github.com/ostafen/vdisk/pkg/store"

// FixedExtent is the trivial VHD extent: user bytes sit contiguously in
// the store and the footer occupies the final sector (spec.md §4.5).
type FixedExtent struct {
	store store.RandomAccessStore
	path  string
}

// NewFixedExtent wraps an already-open store as a fixed extent.
func NewFixedExtent(s store.RandomAccessStore, path string) *FixedExtent {
	return &FixedExtent{store: s, path: path}
}

func (e *FixedExtent) ReadAt(buf []byte, offset int64) (int, error) {
	return e.store.ReadAt(buf, offset)
}

func (e *FixedExtent) WriteAt(buf []byte, offset int64) (int, error) {
	return e.store.WriteAt(buf, offset)
}

func (e *FixedExtent) Flush() error {
	return e.store.Flush()
}

func (e *FixedExtent) BackingFiles() []string {
	return []string{e.path}
}

func (e *FixedExtent) StorageSize() (int64, error) {
	return e.store.Size()
}

// WriteFooter places the serialized footer at file_size - 512, per
// spec.md §4.5.
func (e *FixedExtent) WriteFooter(f *Footer) error {
	size, err := e.store.Size()
	if err != nil {
		return err
	}
	return f.WriteAt(e.store, size-FooterSize)
}

// SparseHeader is nil for a fixed extent.
func (e *FixedExtent) SparseHeader() *SparseHeader {
	return nil
}
