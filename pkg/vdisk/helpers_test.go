package vdisk

import (
	"os"
	"testing"

	"github.com/ostafen/vdisk/pkg/vhd"
	"github.com/stretchr/testify/require"
)

func createFixedVhd(t *testing.T, path string, size uint64) {
	t.Helper()
	img, err := vhd.CreateFixed(path, size)
	require.NoError(t, err)
	require.NoError(t, img.Close())
}

func writeZeroFile(t *testing.T, path string, size int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(size))
}

func writeBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
