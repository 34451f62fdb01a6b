package partition

import (
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/store"
	"github.com/stretchr/testify/require"
)

type fakeDisk struct {
	s store.RandomAccessStore
}

func (d *fakeDisk) ReadAt(buf []byte, offset int64) (int, error)  { return d.s.ReadAt(buf, offset) }
func (d *fakeDisk) WriteAt(buf []byte, offset int64) (int, error) { return d.s.WriteAt(buf, offset) }
func (d *fakeDisk) Flush() error                                  { return d.s.Flush() }
func (d *fakeDisk) Capacity() uint64 {
	sz, _ := d.s.Size()
	return uint64(sz)
}
func (d *fakeDisk) Geometry() geometry.Geometry { return geometry.Geometry{} }
func (d *fakeDisk) PhysicalSectorSize() uint32  { return 512 }

func TestPartitionedDiskSinglePartition(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "disk-*.img")
	require.NoError(t, err)
	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(3 * 1024 * 1024))

	record := make([]byte, 512)
	record[446] = 0x80
	record[450] = 0x0E // Fat16BLBA
	binary.LittleEndian.PutUint32(record[454:], 128)
	binary.LittleEndian.PutUint32(record[458:], 3968)
	record[510], record[511] = 0x55, 0xAA
	require.NoError(t, store.WriteAllAt(s, record, 0))

	disk := &fakeDisk{s: s}
	pd, err := Open(disk, s, nil)
	require.NoError(t, err)
	require.Len(t, pd.Partitions(), 1)

	p := pd.Partitions()[0]
	require.EqualValues(t, 128*512, p.Offset())
	require.EqualValues(t, 3968*512, p.Length())

	data := []byte("hello")
	_, err = p.WriteAt(data, 10)
	require.NoError(t, err)

	out := make([]byte, len(data))
	_, err = p.ReadAt(out, 10)
	require.NoError(t, err)
	require.Equal(t, data, out)

	verify := make([]byte, len(data))
	_, err = disk.ReadAt(verify, int64(p.Offset())+10)
	require.NoError(t, err)
	require.Equal(t, data, verify)
}

func TestPartitionBoundsEnforced(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "disk-*.img")
	require.NoError(t, err)
	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(4096))

	p := &Partition{disk: &fakeDisk{s: s}, offset: 0, length: 100}

	buf := make([]byte, 16)
	_, err = p.ReadAt(buf, 200)
	require.ErrorIs(t, err, store.ErrUnexpectedEOD)
}

func TestPartitionReaderStreamsContent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "disk-*.img")
	require.NoError(t, err)
	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(4096))
	require.NoError(t, store.WriteAllAt(s, []byte("partition payload"), 100))

	p := &Partition{disk: &fakeDisk{s: s}, offset: 100, length: 17}

	out, err := io.ReadAll(p.Reader())
	require.NoError(t, err)
	require.Equal(t, []byte("partition payload"), out)
}
