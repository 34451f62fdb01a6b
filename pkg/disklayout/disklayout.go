// Package disklayout decides between raw, MBR, and GPT partitioning for a
// disk's first sector and exposes a single unified partition iterator
// (spec.md §4.10).
package disklayout

import (
	"github.com/google/uuid"
	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/gpt"
	"github.com/ostafen/vdisk/pkg/mbr"
	"github.com/ostafen/vdisk/pkg/store"
)

// Scheme identifies which partitioning scheme a disk was found to use.
type Scheme int

const (
	Raw Scheme = iota
	Mbr
	Gpt
)

func (s Scheme) String() string {
	switch s {
	case Raw:
		return "Raw"
	case Mbr:
		return "Mbr"
	case Gpt:
		return "Gpt"
	default:
		return "Unknown"
	}
}

// PartitionKind is the unified partition classification, regardless of the
// underlying scheme.
type PartitionKind struct {
	Scheme  Scheme
	MbrKind mbr.PartitionKind
	GptType uuid.UUID
}

func (k PartitionKind) String() string {
	switch k.Scheme {
	case Mbr:
		return "Mbr(" + k.MbrKind.String() + ")"
	case Gpt:
		return "Gpt(" + k.GptType.String() + ")"
	default:
		return "Free"
	}
}

// PartitionInfo is the scheme-independent view of one partition: a byte
// range and a classification.
type PartitionInfo struct {
	Offset uint64
	Length uint64
	Kind   PartitionKind
}

// Layout is the result of reading a disk's partitioning scheme.
type Layout struct {
	scheme     Scheme
	partitions []PartitionInfo
	mbr        *mbr.Layout
	gpt        *gpt.Layout
}

// Scheme reports which partitioning scheme the disk was found to use.
func (l *Layout) Scheme() Scheme { return l.scheme }

// Partitions returns the unified partition set.
func (l *Layout) Partitions() []PartitionInfo { return l.partitions }

// MbrLayout returns the underlying MBR layout, or nil if the disk is not
// MBR-partitioned.
func (l *Layout) MbrLayout() *mbr.Layout { return l.mbr }

// GptLayout returns the underlying GPT layout, or nil if the disk is not
// GPT-partitioned.
func (l *Layout) GptLayout() *gpt.Layout { return l.gpt }

// Read inspects the first sector of s and dispatches to the matching
// scheme reader: an invalid MBR yields a single Raw partition spanning the
// whole disk; a protective MBR hands off to the GPT reader; anything else
// is read as a plain MBR (spec.md §4.10).
func Read(s store.RandomAccessStore, sectorSize uint64, log *logger.Logger) (*Layout, error) {
	record, err := mbr.ReadAt(s, 0)
	if err != nil {
		return nil, err
	}

	if !record.IsValid() {
		capacity, err := s.Size()
		if err != nil {
			return nil, err
		}
		return &Layout{
			scheme: Raw,
			partitions: []PartitionInfo{{
				Offset: 0,
				Length: uint64(capacity),
				Kind:   PartitionKind{Scheme: Raw},
			}},
		}, nil
	}

	if record.IsGptProtective() {
		gptLayout, err := gpt.Read(s, record, sectorSize, gpt.WithLogger(log))
		if err != nil {
			return nil, err
		}

		partitions := make([]PartitionInfo, len(gptLayout.Partitions()))
		for i, p := range gptLayout.Partitions() {
			partitions[i] = PartitionInfo{
				Offset: p.Offset,
				Length: p.Length,
				Kind:   PartitionKind{Scheme: Gpt, GptType: p.Kind},
			}
		}
		return &Layout{scheme: Gpt, partitions: partitions, gpt: gptLayout}, nil
	}

	reader := mbr.NewReader(s, sectorSize, mbr.WithLogger(log))
	mbrLayout, err := reader.ReadFrom(record)
	if err != nil {
		return nil, err
	}

	partitions := make([]PartitionInfo, len(mbrLayout.Partitions()))
	for i, p := range mbrLayout.Partitions() {
		partitions[i] = PartitionInfo{
			Offset: p.Offset,
			Length: p.Length,
			Kind:   PartitionKind{Scheme: Mbr, MbrKind: p.Kind},
		}
	}
	return &Layout{scheme: Mbr, partitions: partitions, mbr: mbrLayout}, nil
}
