package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/ostafen/vdisk/pkg/store"
)

// nameUnits is the fixed UTF-16LE code-unit count of a partition entry's
// name field (spec.md §6).
const nameUnits = 36

type partitionRecord struct {
	PartitionType [16]byte
	PartitionID   [16]byte
	FirstLBA      uint64
	LastLBA       uint64
	Flags         uint64
	Name          [nameUnits]uint16
}

// PartitionInfo is one decoded GPT partition-array entry.
type PartitionInfo struct {
	ID     uuid.UUID
	Kind   uuid.UUID
	Offset uint64
	Length uint64
	Flags  uint64
	Name   string
}

// readPartitions reads, CRC-validates, and decodes the partition array
// described by header (spec.md §4.9).
func readPartitions(s store.RandomAccessStore, header *Header, sectorSize uint64) ([]PartitionInfo, error) {
	entrySize := uint64(header.PartitionEntrySize)
	rawSize := uint64(header.PartitionCount) * entrySize

	bufSize := rawSize
	if bufSize%sectorSize != 0 {
		bufSize = (bufSize/sectorSize + 1) * sectorSize
	}

	buf := make([]byte, bufSize)
	offset := int64(header.PartitionTableLBA * sectorSize)
	if err := store.ReadExactAt(s, buf, offset); err != nil {
		return nil, fmt.Errorf("gpt: read partition array at LBA %d: %w", header.PartitionTableLBA, err)
	}

	if crc32.ChecksumIEEE(buf) != header.PartitionArrayCRC32 {
		return nil, ErrInvalidGptCrc
	}

	var partitions []PartitionInfo
	for i := uint32(0); i < header.PartitionCount; i++ {
		chunk := buf[uint64(i)*entrySize : uint64(i)*entrySize+entrySize]

		var rec partitionRecord
		if err := binary.Read(bytes.NewReader(chunk[:128]), binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("gpt: decode partition entry %d: %w", i, err)
		}

		id := mixedEndianGUID(rec.PartitionID)
		if id == uuid.Nil {
			break
		}

		partitions = append(partitions, PartitionInfo{
			ID:     id,
			Kind:   mixedEndianGUID(rec.PartitionType),
			Offset: rec.FirstLBA * sectorSize,
			Length: (rec.LastLBA - rec.FirstLBA + 1) * sectorSize,
			Flags:  rec.Flags,
			Name:   decodeName(rec.Name[:]),
		})
	}
	return partitions, nil
}

func decodeName(units []uint16) string {
	runes := utf16.Decode(units)
	return strings.TrimRight(string(runes), "\x00")
}
