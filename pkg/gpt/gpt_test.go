package gpt

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"testing"

	guid "github.com/google/uuid"
	"github.com/ostafen/vdisk/pkg/mbr"
	"github.com/ostafen/vdisk/pkg/store"
	"github.com/stretchr/testify/require"
)

const testSectorSize = 512

func rawGUID(id guid.UUID) [16]byte {
	var raw [16]byte
	raw[0], raw[1], raw[2], raw[3] = id[3], id[2], id[1], id[0]
	raw[4], raw[5] = id[5], id[4]
	raw[6], raw[7] = id[7], id[6]
	copy(raw[8:], id[8:])
	return raw
}

func encodeHeader(t *testing.T, rec headerRecord) []byte {
	t.Helper()
	rec.HeaderCRC32 = 0

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &rec))
	rec.HeaderCRC32 = crc32.ChecksumIEEE(buf.Bytes())

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &rec))

	out := make([]byte, testSectorSize)
	copy(out, buf.Bytes())
	return out
}

func encodePartitionArray(t *testing.T, entries []partitionRecord, entrySize int) []byte {
	t.Helper()
	buf := make([]byte, len(entries)*entrySize)
	for i, e := range entries {
		var b bytes.Buffer
		require.NoError(t, binary.Write(&b, binary.LittleEndian, &e))
		copy(buf[i*entrySize:], b.Bytes())
	}
	if len(buf)%testSectorSize != 0 {
		pad := testSectorSize - len(buf)%testSectorSize
		buf = append(buf, make([]byte, pad)...)
	}
	return buf
}

func buildGptDisk(t *testing.T, diskID guid.UUID, partitions []partitionRecord) (*store.FileStore, uint64, uint64) {
	t.Helper()

	const diskSectors = 2048
	f, err := os.CreateTemp(t.TempDir(), "gpt-*.img")
	require.NoError(t, err)
	s := store.NewFileStore(f)
	require.NoError(t, s.Truncate(diskSectors*testSectorSize))

	protective := make([]byte, mbr.Size)
	protective[450] = byte(mbr.GptProtectiveMBR)
	binary.LittleEndian.PutUint32(protective[454:], 1)
	binary.LittleEndian.PutUint32(protective[458:], diskSectors-1)
	protective[510], protective[511] = 0x55, 0xAA
	require.NoError(t, store.WriteAllAt(s, protective, 0))

	entrySize := 128
	partArray := encodePartitionArray(t, partitions, entrySize)
	partArrayCRC := crc32.ChecksumIEEE(partArray)
	require.NoError(t, store.WriteAllAt(s, partArray, 2*testSectorSize))

	header := headerRecord{
		Signature:           signature,
		Revision:            expectedRevision,
		HeaderSize:          HeaderSize,
		CurrentLBA:          1,
		BackupLBA:           diskSectors - 1,
		FirstUsableLBA:      34,
		LastUsableLBA:       diskSectors - 34,
		DiskGUID:            rawGUID(diskID),
		PartitionTableLBA:   2,
		PartitionCount:      uint32(len(partitions)),
		PartitionEntrySize:  uint32(entrySize),
		PartitionArrayCRC32: partArrayCRC,
	}
	primary := encodeHeader(t, header)
	require.NoError(t, store.WriteAllAt(s, primary, testSectorSize))

	header.CurrentLBA, header.BackupLBA = diskSectors-1, 1
	secondary := encodeHeader(t, header)
	require.NoError(t, store.WriteAllAt(s, secondary, (diskSectors-1)*testSectorSize))

	return s, diskSectors, testSectorSize
}

func samplePartitions(t *testing.T) []partitionRecord {
	t.Helper()
	typeID := guid.MustParse("EBD0A0A2-B9E5-4433-87C0-68B6B72699C7")
	partID := guid.MustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")

	var name [nameUnits]uint16
	for i, r := range "root" {
		name[i] = uint16(r)
	}

	return []partitionRecord{
		{
			PartitionType: rawGUID(typeID),
			PartitionID:   rawGUID(partID),
			FirstLBA:      34,
			LastLBA:       2013,
			Flags:         0,
			Name:          name,
		},
	}
}

func TestReadPrimaryHeader(t *testing.T) {
	diskID := guid.MustParse("11111111-2222-3333-4444-555555555555")
	s, _, sectorSize := buildGptDisk(t, diskID, samplePartitions(t))

	m, err := mbr.ReadAt(s, 0)
	require.NoError(t, err)

	layout, err := Read(s, m, sectorSize)
	require.NoError(t, err)
	require.Equal(t, diskID, layout.DiskID())
	require.Len(t, layout.Partitions(), 1)

	p := layout.Partitions()[0]
	require.Equal(t, uint64(34*sectorSize), p.Offset)
	require.Equal(t, uint64((2013-34+1)*sectorSize), p.Length)
	require.Equal(t, "root", p.Name)
}

func TestReadFallsBackToSecondaryHeader(t *testing.T) {
	diskID := guid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	s, diskSectors, sectorSize := buildGptDisk(t, diskID, samplePartitions(t))

	// Corrupt the primary header's signature.
	corrupt := []byte{0}
	_, err := s.WriteAt(corrupt, int64(sectorSize))
	require.NoError(t, err)

	m, err := mbr.ReadAt(s, 0)
	require.NoError(t, err)

	layout, err := Read(s, m, sectorSize)
	require.NoError(t, err)
	require.Equal(t, diskID, layout.DiskID())
	_ = diskSectors
}

func TestReadRejectsNonProtectiveMbr(t *testing.T) {
	s, _, sectorSize := buildGptDisk(t, guid.New(), samplePartitions(t))

	plain := make([]byte, mbr.Size)
	plain[510], plain[511] = 0x55, 0xAA
	require.NoError(t, store.WriteAllAt(s, plain, 0))

	m, err := mbr.ReadAt(s, 0)
	require.NoError(t, err)

	_, err = Read(s, m, sectorSize)
	require.ErrorIs(t, err, ErrInvalidGptMbr)
}

func TestPartitionArrayCrcMismatch(t *testing.T) {
	diskID := guid.New()
	s, _, sectorSize := buildGptDisk(t, diskID, samplePartitions(t))

	// Corrupt a byte inside the partition array.
	one := []byte{0xFF}
	_, err := s.WriteAt(one, 2*int64(sectorSize))
	require.NoError(t, err)

	m, err := mbr.ReadAt(s, 0)
	require.NoError(t, err)

	_, err = Read(s, m, sectorSize)
	require.ErrorIs(t, err, ErrInvalidGptCrc)
}
