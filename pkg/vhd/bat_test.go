package vhd

import (
	"os"
	"testing"

	"github.com/ostafen/vdisk/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestBATReadWriteRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bat-*.bin")
	require.NoError(t, err)
	defer f.Close()

	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(4096))

	bat := NewBAT(8)
	bat.SetBlockID(2, 100)
	bat.SetBlockID(5, 200)

	require.NoError(t, bat.WriteAt(s, 0))

	got, err := ReadBATAt(s, 0, 8)
	require.NoError(t, err)
	require.Equal(t, 8, got.Len())

	id, err := got.BlockID(2)
	require.NoError(t, err)
	require.Equal(t, uint32(100), id)

	id, err = got.BlockID(0)
	require.NoError(t, err)
	require.Equal(t, UnusedBlockID, id)
}

func TestBATPaddedWithFF(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bat-*.bin")
	require.NoError(t, err)
	defer f.Close()

	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(4096))

	bat := NewBAT(4)
	require.NoError(t, bat.WriteAt(s, 0))

	raw := make([]byte, 512)
	require.NoError(t, store.ReadExactAt(s, raw, 0))
	for i := 16; i < len(raw); i++ {
		require.Equal(t, byte(0xFF), raw[i])
	}
}

func TestBATInvalidIndex(t *testing.T) {
	bat := NewBAT(4)
	_, err := bat.BlockID(10)
	require.ErrorIs(t, err, ErrInvalidBlockIndex)
}
