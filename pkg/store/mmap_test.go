//go:build !windows

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMmapStoreReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mmap-store.bin")
	data := generateRandomBuffer(16 * 1024)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := NewMmapStore(path)
	require.NoError(t, err)
	defer s.Close()

	sz, err := s.Size()
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), sz)

	out := make([]byte, len(data))
	require.NoError(t, ReadExactAt(s, out, 0))
	require.Equal(t, data, out)

	_, err = s.WriteAt(out, 0)
	require.ErrorIs(t, err, ErrReadOnlyStore)
}

func TestMmapStoreRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewMmapStore(path)
	require.Error(t, err)
}
