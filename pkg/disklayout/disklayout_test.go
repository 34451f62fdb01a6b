package disklayout

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/ostafen/vdisk/pkg/mbr"
	"github.com/ostafen/vdisk/pkg/store"
	"github.com/stretchr/testify/require"
)

func newDisk(t *testing.T, size int64) *store.FileStore {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "disk-*.img")
	require.NoError(t, err)
	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(size))
	return s
}

func TestReadRawWhenMbrInvalid(t *testing.T) {
	s := newDisk(t, 1<<20)

	layout, err := Read(s, 512, nil)
	require.NoError(t, err)
	require.Equal(t, Raw, layout.Scheme())
	require.Len(t, layout.Partitions(), 1)
	require.EqualValues(t, 1<<20, layout.Partitions()[0].Length)
	require.Equal(t, "Free", layout.Partitions()[0].Kind.String())
}

func TestReadMbrSinglePartition(t *testing.T) {
	s := newDisk(t, 3*1024*1024)

	record := make([]byte, mbr.Size)
	record[446] = 0x80
	record[450] = byte(mbr.Fat16BLBA)
	binary.LittleEndian.PutUint32(record[454:], 128)
	binary.LittleEndian.PutUint32(record[458:], 3968)
	record[510], record[511] = 0x55, 0xAA
	require.NoError(t, store.WriteAllAt(s, record, 0))

	layout, err := Read(s, 512, nil)
	require.NoError(t, err)
	require.Equal(t, Mbr, layout.Scheme())
	require.Len(t, layout.Partitions(), 1)

	p := layout.Partitions()[0]
	require.EqualValues(t, 128*512, p.Offset)
	require.EqualValues(t, 3968*512, p.Length)
	require.Equal(t, "Mbr(Fat16BLBA)", p.Kind.String())
}
