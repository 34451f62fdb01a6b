package store

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateRandomBuffer mirrors the teacher's reader.GenerateRandomBuffer
// test helper, generalized here to a store-conformance check instead of an
// io.ReadSeeker one.
func generateRandomBuffer(n int) []byte {
	b := make([]byte, n)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rng.Read(b)
	return b
}

func TestFileStoreReadWriteAt(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "store-*.bin")
	require.NoError(t, err)
	defer f.Close()

	s := NewFileStore(f)

	data := generateRandomBuffer(64 * 1024)
	require.NoError(t, WriteAllAt(s, data, 0))
	require.NoError(t, s.Flush())

	out := make([]byte, len(data))
	require.NoError(t, ReadExactAt(s, out, 0))
	require.Equal(t, data, out)

	sz, err := s.Size()
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), sz)
}

func TestReadExactAtUnexpectedEOD(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "store-*.bin")
	require.NoError(t, err)
	defer f.Close()

	s := NewFileStore(f)
	require.NoError(t, WriteAllAt(s, []byte("abc"), 0))

	buf := make([]byte, 8)
	err = ReadExactAt(s, buf, 0)
	require.ErrorIs(t, err, ErrUnexpectedEOD)
}

func TestRandomSeekRead(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "store-*.bin")
	require.NoError(t, err)
	defer f.Close()

	s := NewFileStore(f)
	data := generateRandomBuffer(10 * 1024)
	require.NoError(t, WriteAllAt(s, data, 0))

	rng := rand.New(rand.NewSource(42))
	var buf [64]byte
	for i := 0; i < 500; i++ {
		offset := rng.Intn(len(data))
		readLen := 1 + rng.Intn(63)
		if offset+readLen > len(data) {
			readLen = len(data) - offset
		}

		n, err := s.ReadAt(buf[:readLen], int64(offset))
		require.NoError(t, err)
		require.Equal(t, data[offset:offset+n], buf[:n])
	}
}
