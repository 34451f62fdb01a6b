package vhd

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFooterRoundTrip(t *testing.T) {
	want := NewFixedFooter(3*1024*1024, uuid.MustParse("ED51C3E2-93A7-4FF2-B7C4-D0B6407D49B0"))

	buf, err := want.Bytes()
	require.NoError(t, err)
	require.Len(t, buf, FooterSize)

	got, err := ParseFooter(buf)
	require.NoError(t, err)
	require.Equal(t, want.UniqueID, got.UniqueID)
	require.Equal(t, want.Kind, got.Kind)
	require.Equal(t, want.CurrentSize, got.CurrentSize)
	require.Equal(t, want.Geometry, got.Geometry)
}

func TestFooterChecksumRejectsCorruption(t *testing.T) {
	f := NewFixedFooter(1024*1024, uuid.New())
	buf, err := f.Bytes()
	require.NoError(t, err)

	buf[20] ^= 0xFF

	_, err = ParseFooter(buf)
	require.ErrorIs(t, err, ErrInvalidHeaderChecksum)
}

func TestFooterRejectsWrongCookie(t *testing.T) {
	f := NewFixedFooter(1024*1024, uuid.New())
	buf, err := f.Bytes()
	require.NoError(t, err)

	buf[0] = 'x'

	_, err = ParseFooter(buf)
	require.ErrorIs(t, err, ErrInvalidHeaderCookie)
}

func TestNewDynamicFooterPointsAtSparseHeader(t *testing.T) {
	f := NewDynamicFooter(10*1024*1024, uuid.New())
	require.Equal(t, KindDynamic, f.Kind)
	require.Equal(t, uint64(FooterSize), f.DataOffset)
}
