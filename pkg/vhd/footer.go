package vhd

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/ostafen/vdisk/pkg/geometry"
	"github.com/ostafen/vdisk/pkg/store"
)

// FooterSize is the fixed on-disk size of a VHD footer (spec.md §3).
const FooterSize = 512

var footerCookie = [8]byte{'c', 'o', 'n', 'e', 'c', 't', 'i', 'x'}

// Kind is the VHD disk-type code carried in the footer.
type Kind uint32

const (
	KindFixed        Kind = 2
	KindDynamic      Kind = 3
	KindDifferencing Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "Fixed"
	case KindDynamic:
		return "Dynamic"
	case KindDifferencing:
		return "Differencing"
	default:
		return "Unknown"
	}
}

// footerRecord is the byte-exact 512-byte on-disk layout. Tag fields
// (cookie, creator app/OS ids, unique id) are plain byte arrays and are
// copied verbatim; every other multi-byte field is big-endian and is
// handled by a single binary.Read/Write pass over the whole record.
type footerRecord struct {
	Cookie          [8]byte
	Features        uint32
	FormatVersion   uint32
	DataOffset      uint64
	Timestamp       uint32
	CreatorApp      [4]byte
	CreatorVersion  uint32
	CreatorOS       [4]byte
	OriginalSize    uint64
	CurrentSize     uint64
	Cylinders       uint16
	Heads           uint8
	SectorsPerTrack uint8
	DiskType        uint32
	Checksum        uint32
	UniqueID        [16]byte
	SavedState      uint8
	Padding         [427]byte
}

// Footer is the parsed representation of the 512-byte VHD footer
// (spec.md §4.2).
type Footer struct {
	Features       uint32
	FormatVersion  uint32
	DataOffset     uint64
	Timestamp      uint32
	CreatorApp     string
	CreatorVersion uint32
	CreatorOS      string
	OriginalSize   uint64
	CurrentSize    uint64
	Geometry       geometry.Geometry
	Kind           Kind
	UniqueID       uuid.UUID
	SavedState     uint8
}

// DataOffsetNone is the sentinel DataOffset value for fixed disks
// (0xFFFFFFFFFFFFFFFF).
const DataOffsetNone uint64 = 0xFFFFFFFFFFFFFFFF

// NewFixedFooter synthesizes a footer for create_fixed, with VHD-algorithm
// geometry and DataOffset set to the "no sparse header" sentinel.
func NewFixedFooter(size uint64, id uuid.UUID) Footer {
	return Footer{
		Features:       2,
		FormatVersion:  0x00010000,
		DataOffset:     DataOffsetNone,
		CreatorApp:     "rdsk",
		CreatorVersion: 0x00010000,
		CreatorOS:      "Wi2k",
		OriginalSize:   size,
		CurrentSize:    size,
		Geometry:       geometry.WithVHDCapacity(size),
		Kind:           KindFixed,
		UniqueID:       id,
	}
}

// NewDynamicFooter synthesizes a footer for create_dynamic, pointing
// DataOffset at the sparse header that conventionally follows at byte 512.
func NewDynamicFooter(size uint64, id uuid.UUID) Footer {
	f := NewFixedFooter(size, id)
	f.DataOffset = FooterSize
	f.Kind = KindDynamic
	return f
}

// ReadFooterAt reads and validates a footer at the given store offset.
func ReadFooterAt(s store.RandomAccessStore, offset int64) (*Footer, error) {
	buf := make([]byte, FooterSize)
	if err := store.ReadExactAt(s, buf, offset); err != nil {
		return nil, fmt.Errorf("vhd: read footer at %d: %w", offset, err)
	}
	return ParseFooter(buf)
}

// ParseFooter decodes and validates a 512-byte footer record.
func ParseFooter(buf []byte) (*Footer, error) {
	if len(buf) != FooterSize {
		return nil, fmt.Errorf("vhd: footer must be %d bytes, got %d", FooterSize, len(buf))
	}

	var rec footerRecord
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, &rec); err != nil {
		return nil, fmt.Errorf("vhd: decode footer: %w", err)
	}

	if rec.Cookie != footerCookie {
		return nil, ErrInvalidHeaderCookie
	}

	gotChecksum := rec.Checksum
	rec.Checksum = 0
	wantChecksum, err := encodeFooterChecksum(&rec)
	if err != nil {
		return nil, err
	}
	if gotChecksum != wantChecksum {
		return nil, ErrInvalidHeaderChecksum
	}

	kind := Kind(rec.DiskType)
	switch kind {
	case KindFixed, KindDynamic, KindDifferencing:
	default:
		return nil, &UnknownTypeError{Code: rec.DiskType}
	}

	return &Footer{
		Features:       rec.Features,
		FormatVersion:  rec.FormatVersion,
		DataOffset:     rec.DataOffset,
		Timestamp:      rec.Timestamp,
		CreatorApp:     string(rec.CreatorApp[:]),
		CreatorVersion: rec.CreatorVersion,
		CreatorOS:      string(rec.CreatorOS[:]),
		OriginalSize:   rec.OriginalSize,
		CurrentSize:    rec.CurrentSize,
		Geometry:       geometry.CHS(uint64(rec.Cylinders), uint32(rec.Heads), uint32(rec.SectorsPerTrack)),
		Kind:           kind,
		UniqueID:       uuid.UUID(rec.UniqueID),
		SavedState:     rec.SavedState,
	}, nil
}

// encodeFooterChecksum serializes rec (with its Checksum field already
// zeroed by the caller) and computes the ones-complement byte-sum over it.
func encodeFooterChecksum(rec *footerRecord) (uint32, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, rec); err != nil {
		return 0, fmt.Errorf("vhd: encode footer: %w", err)
	}
	return checksum(buf.Bytes()), nil
}

// Bytes serializes the footer back to its 512-byte on-disk form.
func (f *Footer) Bytes() ([]byte, error) {
	var creatorApp, creatorOS [4]byte
	copy(creatorApp[:], f.CreatorApp)
	copy(creatorOS[:], f.CreatorOS)

	rec := footerRecord{
		Cookie:          footerCookie,
		Features:        f.Features,
		FormatVersion:   f.FormatVersion,
		DataOffset:      f.DataOffset,
		Timestamp:       f.Timestamp,
		CreatorApp:      creatorApp,
		CreatorVersion:  f.CreatorVersion,
		CreatorOS:       creatorOS,
		OriginalSize:    f.OriginalSize,
		CurrentSize:     f.CurrentSize,
		Cylinders:       uint16(f.Geometry.Cylinders),
		Heads:           uint8(f.Geometry.HeadsPerCyl),
		SectorsPerTrack: uint8(f.Geometry.SectorsPerTrack),
		DiskType:        uint32(f.Kind),
		UniqueID:        [16]byte(f.UniqueID),
		SavedState:      f.SavedState,
	}

	sum, err := encodeFooterChecksum(&rec)
	if err != nil {
		return nil, err
	}
	rec.Checksum = sum

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, &rec); err != nil {
		return nil, fmt.Errorf("vhd: encode footer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAt serializes and writes the footer at the given store offset.
func (f *Footer) WriteAt(s store.RandomAccessStore, offset int64) error {
	buf, err := f.Bytes()
	if err != nil {
		return err
	}
	return store.WriteAllAt(s, buf, offset)
}
