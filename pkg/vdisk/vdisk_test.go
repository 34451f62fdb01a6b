package vdisk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRecognizesVhd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vhd")
	createFixedVhd(t, path, 2*1024*1024)

	img, err := Open(path)
	require.NoError(t, err)
	defer img.Close()

	require.Equal(t, "VHD", img.Name())
	require.EqualValues(t, 2*1024*1024, img.Capacity())
}

func TestAsStoreReportsDiskCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vhd")
	createFixedVhd(t, path, 3*1024*1024)

	img, err := Open(path)
	require.NoError(t, err)
	defer img.Close()

	s := AsStore(img)
	sz, err := s.Size()
	require.NoError(t, err)
	require.EqualValues(t, 3*1024*1024, sz)

	cap, err := s.Capacity()
	require.NoError(t, err)
	require.EqualValues(t, 3*1024*1024, cap)
}

func TestOpenFallsBackToRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.img")
	writeZeroFile(t, path, 64*1024)

	img, err := Open(path)
	require.NoError(t, err)
	defer img.Close()

	require.Equal(t, "Raw", img.Name())
	require.EqualValues(t, 64*1024, img.Capacity())
}

func TestOpenRecognizesVhdxStub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vhdx")
	writeBytes(t, path, append([]byte("vhdxfile"), make([]byte, 512)...))

	_, err := Open(path)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "vhdx", unsupported.Format)
}

func TestOpenRecognizesVdiStub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vdi")
	writeBytes(t, path, append([]byte("<<< Oracle VM VirtualBox Disk Image >>>"), make([]byte, 512)...))

	_, err := Open(path)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "vdi", unsupported.Format)
}

func TestOpenRecognizesVmdkStub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.vmdk")
	writeBytes(t, path, append([]byte("KDMV"), make([]byte, 512)...))

	_, err := Open(path)
	var unsupported *UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "vmdk", unsupported.Format)
}
