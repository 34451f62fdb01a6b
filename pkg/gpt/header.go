package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
	"github.com/ostafen/vdisk/pkg/store"
)

// HeaderSize is the canonical GPT header size (spec.md §4.9).
const HeaderSize = 92

const expectedRevision = 0x00010000

var signature = [8]byte{'E', 'F', 'I', ' ', 'P', 'A', 'R', 'T'}

type headerRecord struct {
	Signature           [8]byte
	Revision            uint32
	HeaderSize          uint32
	HeaderCRC32         uint32
	Reserved            uint32
	CurrentLBA          uint64
	BackupLBA           uint64
	FirstUsableLBA      uint64
	LastUsableLBA       uint64
	DiskGUID            [16]byte
	PartitionTableLBA   uint64
	PartitionCount      uint32
	PartitionEntrySize  uint32
	PartitionArrayCRC32 uint32
}

// Header is the parsed GPT header.
type Header struct {
	Revision            uint32
	CurrentLBA          uint64
	BackupLBA           uint64
	FirstUsableLBA      uint64
	LastUsableLBA       uint64
	DiskGUID            uuid.UUID
	PartitionTableLBA   uint64
	PartitionCount      uint32
	PartitionEntrySize  uint32
	PartitionArrayCRC32 uint32
}

// readHeaderAt reads and validates a GPT header at the given LBA. GPT
// headers are stored little-endian, unlike VHD's big-endian records.
func readHeaderAt(s store.RandomAccessStore, lba, sectorSize uint64) (*Header, error) {
	buf := make([]byte, sectorSize)
	if err := store.ReadExactAt(s, buf, int64(lba*sectorSize)); err != nil {
		return nil, fmt.Errorf("gpt: read header at LBA %d: %w", lba, err)
	}

	var rec headerRecord
	if err := binary.Read(bytes.NewReader(buf[:HeaderSize]), binary.LittleEndian, &rec); err != nil {
		return nil, fmt.Errorf("gpt: decode header: %w", err)
	}

	if rec.Signature != signature {
		return nil, ErrInvalidGptHeader
	}

	gotCRC := rec.HeaderCRC32
	rec.HeaderCRC32 = 0

	var crcBuf bytes.Buffer
	if err := binary.Write(&crcBuf, binary.LittleEndian, &rec); err != nil {
		return nil, fmt.Errorf("gpt: encode header for crc: %w", err)
	}
	if crc32.ChecksumIEEE(crcBuf.Bytes()) != gotCRC {
		return nil, ErrInvalidGptHeader
	}

	return &Header{
		Revision:            rec.Revision,
		CurrentLBA:          rec.CurrentLBA,
		BackupLBA:           rec.BackupLBA,
		FirstUsableLBA:      rec.FirstUsableLBA,
		LastUsableLBA:       rec.LastUsableLBA,
		DiskGUID:            mixedEndianGUID(rec.DiskGUID),
		PartitionTableLBA:   rec.PartitionTableLBA,
		PartitionCount:      rec.PartitionCount,
		PartitionEntrySize:  rec.PartitionEntrySize,
		PartitionArrayCRC32: rec.PartitionArrayCRC32,
	}, nil
}
