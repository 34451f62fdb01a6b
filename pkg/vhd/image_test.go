package vhd

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateFixedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vhd")

	img, err := CreateFixed(path, 3*1024*1024)
	require.NoError(t, err)

	data := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(data)

	n, err := img.WriteAt(data, 512)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, img.Flush())

	out := make([]byte, len(data))
	n, err = img.ReadAt(out, 512)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, out)
	require.NoError(t, img.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, KindFixed, reopened.Kind())
	require.Equal(t, uint64(3*1024*1024), reopened.Capacity())

	out2 := make([]byte, len(data))
	_, err = reopened.ReadAt(out2, 512)
	require.NoError(t, err)
	require.Equal(t, data, out2)
}

func TestCreateFixedRejectsOversize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.vhd")
	_, err := CreateFixed(path, MaxSize+1)
	require.ErrorIs(t, err, ErrDiskSizeTooBig)
}

func TestCreateDynamicEmptyReadsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dyn.vhd")

	img, err := CreateDynamic(path, 16*1024*1024)
	require.NoError(t, err)
	require.Equal(t, KindDynamic, img.Kind())

	buf := make([]byte, 8192)
	for i := range buf {
		buf[i] = 0xAA
	}
	n, err := img.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
	require.NoError(t, img.Close())
}

func TestCreateDynamicWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dyn.vhd")

	img, err := CreateDynamic(path, 16*1024*1024)
	require.NoError(t, err)

	// Write spans an unaligned head sector, several whole sectors, and an
	// unaligned tail sector, exercising all three write_block paths.
	data := make([]byte, 5*512+137)
	rand.New(rand.NewSource(7)).Read(data)

	offset := int64(200)
	n, err := img.WriteAt(data, offset)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	out := make([]byte, len(data))
	n, err = img.ReadAt(out, offset)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, out)

	// Bytes just outside the written range stay zero.
	before := make([]byte, 1)
	_, err = img.ReadAt(before, offset-1)
	require.NoError(t, err)
	require.Equal(t, byte(0), before[0])

	require.NoError(t, img.Flush())
	require.NoError(t, img.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	out2 := make([]byte, len(data))
	_, err = reopened.ReadAt(out2, offset)
	require.NoError(t, err)
	require.Equal(t, data, out2)
}

func TestCreateDynamicWriteAcrossBlockBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dyn-cross.vhd")

	img, err := CreateDynamic(path, 16*1024*1024)
	require.NoError(t, err)

	blockSize := int64(defaultBlockSize)
	data := make([]byte, 4096)
	rand.New(rand.NewSource(3)).Read(data)

	offset := blockSize - 2048
	n, err := img.WriteAt(data, offset)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	out := make([]byte, len(data))
	_, err = img.ReadAt(out, offset)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestReadWriteBeyondEOD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.vhd")
	img, err := CreateFixed(path, 4096)
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = img.ReadAt(buf, 5000)
	require.ErrorIs(t, err, ErrReadBeyondEOD)

	_, err = img.WriteAt(buf, 5000)
	require.ErrorIs(t, err, ErrWriteBeyondEOD)
}

func TestCreateDifferencingUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.vhd")
	_, err := CreateDifferencing(path, "base.vhd")
	require.ErrorIs(t, err, ErrDifferencingUnsupported)
}
