package gpt

import (
	"github.com/google/uuid"
	"github.com/ostafen/vdisk/internal/logger"
	"github.com/ostafen/vdisk/pkg/mbr"
	"github.com/ostafen/vdisk/pkg/store"
)

// Option configures a Read call.
type Option func(*options)

type options struct {
	log *logger.Logger
}

// WithLogger attaches a diagnostic logger, used to trace primary/secondary
// header failover. A nil logger (the default) discards silently.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Layout is a fully parsed GPT disk: the disk-wide GUID and the decoded
// partition array, validated against one of the two header copies
// (spec.md §4.9).
type Layout struct {
	diskGUID   uuid.UUID
	partitions []PartitionInfo
}

// Read requires mbr to be a protective MBR, then reads the primary GPT
// header; if it is missing or fails validation, it falls back to the
// secondary header at the end of the disk. Both failing is fatal.
func Read(s store.RandomAccessStore, m *mbr.MasterBootRecord, sectorSize uint64, opts ...Option) (*Layout, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if !m.IsGptProtective() {
		return nil, ErrInvalidGptMbr
	}

	header, err := readHeaderAt(s, 1, sectorSize)
	if err != nil {
		o.log.Debugf("gpt: primary header invalid, falling back to secondary: %v", err)

		capacity, sizeErr := s.Size()
		if sizeErr != nil {
			return nil, sizeErr
		}
		backupLBA := uint64(capacity)/sectorSize - 1
		header, err = readHeaderAt(s, backupLBA, sectorSize)
		if err != nil {
			o.log.Debugf("gpt: secondary header at LBA %d also invalid: %v", backupLBA, err)
			return nil, ErrInvalidGptHeader
		}
	}

	partitions, err := readPartitions(s, header, sectorSize)
	if err != nil {
		return nil, err
	}

	return &Layout{
		diskGUID:   header.DiskGUID,
		partitions: partitions,
	}, nil
}

func (l *Layout) DiskID() uuid.UUID {
	return l.diskGUID
}

func (l *Layout) Partitions() []PartitionInfo {
	return l.partitions
}
