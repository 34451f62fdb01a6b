package vhd

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSparseHeaderRoundTrip(t *testing.T) {
	want := &SparseHeader{
		DataOffset:      DataOffsetNone,
		TableOffset:     1536,
		HeaderVersion:   0x00010000,
		MaxTableEntries: 16,
		BlockSize:       2 * 1024 * 1024,
		ParentID:        uuid.Nil,
		ParentName:      "base.vhd",
	}

	buf, err := want.Bytes()
	require.NoError(t, err)
	require.Len(t, buf, SparseHeaderSize)

	got, err := ParseSparseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, want.TableOffset, got.TableOffset)
	require.Equal(t, want.MaxTableEntries, got.MaxTableEntries)
	require.Equal(t, want.BlockSize, got.BlockSize)
	require.Equal(t, want.ParentName, got.ParentName)
}

func TestSparseHeaderRejectsCorruption(t *testing.T) {
	h := &SparseHeader{TableOffset: 1536, MaxTableEntries: 4, BlockSize: 2 * 1024 * 1024}
	buf, err := h.Bytes()
	require.NoError(t, err)

	buf[40] ^= 0xFF

	_, err = ParseSparseHeader(buf)
	require.ErrorIs(t, err, ErrInvalidSparseHeaderChecksum)
}

func TestBitmapSize(t *testing.T) {
	h := &SparseHeader{BlockSize: 2 * 1024 * 1024}
	// 2MiB block / 512B sector = 4096 sectors = 512 bytes of bitmap,
	// already sector-sized.
	require.Equal(t, uint32(512), h.BitmapSize())
}
