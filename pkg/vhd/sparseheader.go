package vhd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/store"
)

// SparseHeaderSize is the fixed on-disk size of a VHD dynamic-disk header
// (spec.md §3).
const SparseHeaderSize = 1024

// ParentLocatorCount is the fixed number of parent-locator slots.
const ParentLocatorCount = 8

var sparseCookie = [8]byte{'c', 'x', 's', 'p', 'a', 'r', 's', 'e'}

// ParentLocator is one of the eight platform-specific locators recorded in
// the sparse header for differencing disks. This library never resolves
// them (spec.md §9 / SPEC_FULL.md §4): they are parsed and carried for
// display, not followed.
type ParentLocator struct {
	PlatformCode       uint32
	PlatformDataSpace  uint32
	PlatformDataLength uint32
	PlatformDataOffset uint64
}

type sparseHeaderRecord struct {
	Cookie           [8]byte
	DataOffset       uint64
	TableOffset      uint64
	HeaderVersion    uint32
	MaxTableEntries  uint32
	BlockSize        uint32
	Checksum         uint32
	ParentID         [16]byte
	ParentTimeStamp  uint32
	Reserved         uint32
	ParentUnicodeName [256]uint16
	ParentLocators   [ParentLocatorCount]parentLocatorRecord
	Padding          [256]byte
}

type parentLocatorRecord struct {
	PlatformCode       uint32
	PlatformDataSpace  uint32
	PlatformDataLength uint32
	Reserved           uint32
	PlatformDataOffset uint64
}

// SparseHeader is the parsed representation of the 1024-byte VHD dynamic
// disk header (spec.md §4.3).
type SparseHeader struct {
	DataOffset      uint64
	TableOffset     uint64
	HeaderVersion   uint32
	MaxTableEntries uint32
	BlockSize       uint32
	ParentID        uuid.UUID
	ParentTimeStamp uint32
	ParentName      string
	ParentLocators  [ParentLocatorCount]ParentLocator
}

// ReadSparseHeaderAt reads and validates a sparse header at the given
// store offset, and checks that its BAT offset is within the file
// (spec.md §4.3's "table_offset < file_size" invariant).
func ReadSparseHeaderAt(s store.RandomAccessStore, offset int64) (*SparseHeader, error) {
	buf := make([]byte, SparseHeaderSize)
	if err := store.ReadExactAt(s, buf, offset); err != nil {
		return nil, fmt.Errorf("vhd: read sparse header at %d: %w", offset, err)
	}

	header, err := ParseSparseHeader(buf)
	if err != nil {
		return nil, err
	}

	fileSize, err := s.Size()
	if err != nil {
		return nil, err
	}
	if header.TableOffset >= uint64(fileSize) {
		return nil, ErrInvalidSparseHeaderOffset
	}
	return header, nil
}

// ParseSparseHeader decodes and validates a 1024-byte sparse header
// record.
func ParseSparseHeader(buf []byte) (*SparseHeader, error) {
	if len(buf) != SparseHeaderSize {
		return nil, fmt.Errorf("vhd: sparse header must be %d bytes, got %d", SparseHeaderSize, len(buf))
	}

	var rec sparseHeaderRecord
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, &rec); err != nil {
		return nil, fmt.Errorf("vhd: decode sparse header: %w", err)
	}

	if rec.Cookie != sparseCookie {
		return nil, ErrInvalidSparseHeaderCookie
	}

	gotChecksum := rec.Checksum
	rec.Checksum = 0
	wantChecksum, err := encodeSparseHeaderChecksum(&rec)
	if err != nil {
		return nil, err
	}
	if gotChecksum != wantChecksum {
		return nil, ErrInvalidSparseHeaderChecksum
	}

	var locators [ParentLocatorCount]ParentLocator
	for i, l := range rec.ParentLocators {
		locators[i] = ParentLocator{
			PlatformCode:       l.PlatformCode,
			PlatformDataSpace:  l.PlatformDataSpace,
			PlatformDataLength: l.PlatformDataLength,
			PlatformDataOffset: l.PlatformDataOffset,
		}
	}

	return &SparseHeader{
		DataOffset:      rec.DataOffset,
		TableOffset:     rec.TableOffset,
		HeaderVersion:   rec.HeaderVersion,
		MaxTableEntries: rec.MaxTableEntries,
		BlockSize:       rec.BlockSize,
		ParentID:        uuid.UUID(rec.ParentID),
		ParentTimeStamp: rec.ParentTimeStamp,
		ParentName:      decodeParentName(rec.ParentUnicodeName[:]),
		ParentLocators:  locators,
	}, nil
}

func decodeParentName(units []uint16) string {
	runes := utf16.Decode(units)
	return strings.TrimRight(string(runes), "\x00")
}

func encodeParentName(name string) [256]uint16 {
	var out [256]uint16
	units := utf16.Encode([]rune(name))
	copy(out[:], units)
	return out
}

func encodeSparseHeaderChecksum(rec *sparseHeaderRecord) (uint32, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, rec); err != nil {
		return 0, fmt.Errorf("vhd: encode sparse header: %w", err)
	}
	return checksum(buf.Bytes()), nil
}

// Bytes serializes the sparse header back to its 1024-byte on-disk form.
func (h *SparseHeader) Bytes() ([]byte, error) {
	var locators [ParentLocatorCount]parentLocatorRecord
	for i, l := range h.ParentLocators {
		locators[i] = parentLocatorRecord{
			PlatformCode:       l.PlatformCode,
			PlatformDataSpace:  l.PlatformDataSpace,
			PlatformDataLength: l.PlatformDataLength,
			PlatformDataOffset: l.PlatformDataOffset,
		}
	}

	rec := sparseHeaderRecord{
		Cookie:            sparseCookie,
		DataOffset:        h.DataOffset,
		TableOffset:       h.TableOffset,
		HeaderVersion:     h.HeaderVersion,
		MaxTableEntries:   h.MaxTableEntries,
		BlockSize:         h.BlockSize,
		ParentID:          [16]byte(h.ParentID),
		ParentTimeStamp:   h.ParentTimeStamp,
		ParentUnicodeName: encodeParentName(h.ParentName),
		ParentLocators:    locators,
	}

	sum, err := encodeSparseHeaderChecksum(&rec)
	if err != nil {
		return nil, err
	}
	rec.Checksum = sum

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, &rec); err != nil {
		return nil, fmt.Errorf("vhd: encode sparse header: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAt serializes and writes the sparse header at the given offset.
func (h *SparseHeader) WriteAt(s store.RandomAccessStore, offset int64) error {
	buf, err := h.Bytes()
	if err != nil {
		return err
	}
	return store.WriteAllAt(s, buf, offset)
}

// BitmapSize returns the per-block sector-bitmap size in bytes: one bit
// per sector in the block, rounded up to a whole sector (spec.md §3).
func (h *SparseHeader) BitmapSize() uint32 {
	const sectorSize = geometry.SectorSize

	bitsNeeded := h.BlockSize / (sectorSize * 8)
	if h.BlockSize%(sectorSize*8) != 0 {
		bitsNeeded++
	}
	size := bitsNeeded
	if size%sectorSize != 0 {
		size = (size/sectorSize + 1) * sectorSize
	}
	return size
}
