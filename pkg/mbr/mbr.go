// Package mbr implements the Master Boot Record reader described in
// spec.md §4.8: protective-MBR detection and the extended/logical
// partition (EBR) chain walk.
package mbr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/store"
)

// Signature is the required trailing two bytes of a valid MBR or EBR.
const Signature uint16 = 0xAA55

// Size is the fixed on-disk size of a master boot record / extended boot
// record.
const Size = 512

// PartitionKind is the one-byte MBR partition type field, grounded on the
// original source's KnownPartitionKind enum.
type PartitionKind uint8

const (
	Empty                    PartitionKind = 0x00
	Fat12                    PartitionKind = 0x01
	Fat16                    PartitionKind = 0x04
	ExtendedCHS              PartitionKind = 0x05
	Fat16BCHS                PartitionKind = 0x06
	Ntfs                     PartitionKind = 0x07
	Fat32CHS                 PartitionKind = 0x0B
	Fat32LBA                 PartitionKind = 0x0C
	Fat16BLBA                PartitionKind = 0x0E
	ExtendedLBA              PartitionKind = 0x0F
	WindowsRecovery          PartitionKind = 0x27
	DynamicExtendedPartition PartitionKind = 0x42
	GptProtectiveMBR         PartitionKind = 0xEE
	EfiSystemPartition       PartitionKind = 0xEF
	VmwareVmfs               PartitionKind = 0xFB
)

var partitionKindNames = map[PartitionKind]string{
	Empty:                    "Empty",
	Fat12:                    "Fat12",
	Fat16:                    "Fat16",
	ExtendedCHS:              "ExtendedCHS",
	Fat16BCHS:                "Fat16BCHS",
	Ntfs:                     "Ntfs",
	Fat32CHS:                 "Fat32CHS",
	Fat32LBA:                 "Fat32LBA",
	Fat16BLBA:                "Fat16BLBA",
	ExtendedLBA:              "ExtendedLBA",
	WindowsRecovery:          "WindowsRecovery",
	DynamicExtendedPartition: "DynamicExtendedPartition",
	GptProtectiveMBR:         "GptProtectiveMBR",
	EfiSystemPartition:       "EfiSystemPartition",
	VmwareVmfs:               "VmwareVmfs",
}

// String renders the known partition kind name, or "Unknown(0xNN)".
func (k PartitionKind) String() string {
	if name, ok := partitionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02X)", uint8(k))
}

// IsExtended reports whether the kind denotes an extended-partition
// container (CHS or LBA addressed) rather than a leaf filesystem.
func (k PartitionKind) IsExtended() bool {
	return k == ExtendedCHS || k == ExtendedLBA
}

// PartitionEntry is a single 16-byte entry in the MBR/EBR partition table.
type PartitionEntry struct {
	BootIndicator  uint8
	StartCHS       [3]byte
	Kind           PartitionKind
	EndCHS         [3]byte
	FirstSectorLBA uint32
	SectorCount    uint32
}

// Bootable reports whether the boot-indicator flag (0x80) is set.
func (e *PartitionEntry) Bootable() bool {
	return e.BootIndicator&0x80 == 0x80
}

// MasterBootRecord is the raw, parsed 512-byte record.
type MasterBootRecord struct {
	BootCode         [440]byte
	DiskSignature    uint32
	CopyProtected    uint16
	PartitionEntries [4]PartitionEntry
	BootSignature    uint16
}

// IsValid reports whether the trailing signature is 0xAA55.
func (m *MasterBootRecord) IsValid() bool {
	return m.BootSignature == Signature
}

// IsGptProtective reports whether this is a valid MBR whose first
// partition entry declares the GPT protective type (0xEE).
func (m *MasterBootRecord) IsGptProtective() bool {
	return m.IsValid() && m.PartitionEntries[0].Kind == GptProtectiveMBR
}

// Parse decodes a 512-byte record. All multi-byte MBR fields are
// little-endian on disk.
func Parse(data []byte) (*MasterBootRecord, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("mbr: record must be %d bytes, got %d", Size, len(data))
	}

	var m MasterBootRecord
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &m); err != nil {
		return nil, fmt.Errorf("mbr: decode: %w", err)
	}
	return &m, nil
}

// ReadAt reads and parses the 512-byte record at the given store offset.
func ReadAt(s store.RandomAccessStore, offset int64) (*MasterBootRecord, error) {
	buf := make([]byte, Size)
	if err := store.ReadExactAt(s, buf, offset); err != nil {
		return nil, fmt.Errorf("mbr: read at %d: %w", offset, err)
	}
	return Parse(buf)
}

// PartitionInfo describes one discovered partition, primary or logical.
type PartitionInfo struct {
	Offset uint64
	Length uint64
	Kind   PartitionKind
	Boot   bool
}

func newPartitionInfo(e *PartitionEntry, sectorSize, relativeOffset uint64) PartitionInfo {
	return PartitionInfo{
		Offset: uint64(e.FirstSectorLBA)*sectorSize + relativeOffset,
		Length: uint64(e.SectorCount) * sectorSize,
		Kind:   e.Kind,
		Boot:   e.Bootable(),
	}
}

// Layout is the result of reading an MBR disk: its primary (and resolved
// logical) partitions, plus the extended-partition container frames that
// were walked to find them.
type Layout struct {
	mbr                *MasterBootRecord
	partitions         []PartitionInfo
	extendedPartitions []PartitionInfo
}

// DiskSignature returns the MBR's 4-byte disk signature.
func (l *Layout) DiskSignature() uint32 { return l.mbr.DiskSignature }

// Partitions returns the primary and logical (leaf) partitions.
func (l *Layout) Partitions() []PartitionInfo { return l.partitions }

// HasExtendedPartition reports whether any extended-partition container
// was found while walking the primary table.
func (l *Layout) HasExtendedPartition() bool { return len(l.extendedPartitions) > 0 }

// ExtendedPartitions returns the extended-partition container frames
// walked to resolve the logical partitions.
func (l *Layout) ExtendedPartitions() []PartitionInfo { return l.extendedPartitions }

// Reader parses an MBR and walks its extended-partition chain.
type Reader struct {
	store      store.RandomAccessStore
	sectorSize uint64
	log        *logger.Logger
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithLogger attaches a diagnostic logger, used for traces of the
// extended-partition chain walk. A nil logger (the default) discards
// silently.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// NewReader constructs a Reader over a store at the given logical sector
// size (used to scale LBA fields to byte offsets).
func NewReader(s store.RandomAccessStore, sectorSize uint64, opts ...Option) *Reader {
	r := &Reader{store: s, sectorSize: sectorSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses the MBR at disk offset 0 and resolves its full partition
// set, including logicals reached through the EBR chain.
func (r *Reader) Read() (*Layout, error) {
	mbr, err := ReadAt(r.store, 0)
	if err != nil {
		return nil, err
	}
	return r.ReadFrom(mbr)
}

// ReadFrom resolves the partition set from an already-parsed MBR (used by
// DiskLayout, which must inspect the MBR before deciding whether to defer
// to the GPT reader).
func (r *Reader) ReadFrom(mbr *MasterBootRecord) (*Layout, error) {
	layout := &Layout{mbr: mbr}

	for i := range mbr.PartitionEntries {
		entry := &mbr.PartitionEntries[i]
		if entry.FirstSectorLBA == 0 || entry.SectorCount == 0 {
			continue
		}

		info := newPartitionInfo(entry, r.sectorSize, 0)
		if info.Kind.IsExtended() {
			layout.extendedPartitions = append(layout.extendedPartitions, info)
			if err := r.readExtendedPartition(info.Offset, layout); err != nil {
				return nil, err
			}
		} else {
			layout.partitions = append(layout.partitions, info)
		}
	}

	return layout, nil
}

// readExtendedPartition walks the EBR chain rooted at offset (the byte
// offset of the extended partition's first EBR), per spec.md §4.8: each
// EBR's first entry is a logical partition relative to the current EBR;
// its second entry, if present and non-extended, is a logical partition
// too; if the second entry is itself extended, its LBA is relative to the
// chain's original base offset, not the current EBR.
func (r *Reader) readExtendedPartition(offset uint64, layout *Layout) error {
	ebrOffset := offset

	for {
		ebr, err := ReadAt(r.store, int64(ebrOffset))
		if err != nil {
			// A chain may legitimately terminate at an unreadable or
			// invalid trailing EBR; spec.md requires termination, not a
			// hard failure, when the signature is absent.
			r.log.Debugf("mbr: ebr chain ends at offset %d: %v", ebrOffset, err)
			return nil
		}
		if !ebr.IsValid() {
			r.log.Debugf("mbr: ebr chain ends at offset %d: invalid signature", ebrOffset)
			return nil
		}

		first := &ebr.PartitionEntries[0]
		if first.FirstSectorLBA != 0 {
			info := newPartitionInfo(first, r.sectorSize, ebrOffset)
			layout.partitions = append(layout.partitions, info)
		}

		advanced := false
		for i := 1; i < len(ebr.PartitionEntries); i++ {
			next := &ebr.PartitionEntries[i]
			if next.FirstSectorLBA == 0 {
				return nil
			}

			info := newPartitionInfo(next, r.sectorSize, ebrOffset)
			if info.Kind.IsExtended() {
				layout.extendedPartitions = append(layout.extendedPartitions, info)
				ebrOffset = offset + uint64(next.FirstSectorLBA)*r.sectorSize
				advanced = true
				break
			}
			layout.partitions = append(layout.partitions, info)
		}

		if !advanced {
			return nil
		}
	}
}
