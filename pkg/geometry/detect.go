package geometry

import (
	"github.com/ostafen/vdisk/pkg/mbr"
	"github.com/ostafen/vdisk/pkg/store"
)

// DetectFromMBR infers a display-only geometry from the CHS fields already
// present in a disk's MBR, supplementing spec.md with the original
// source's Geometry::detect (SPEC_FULL.md §4). It is never used for
// addressing: LBA offsets computed by pkg/mbr and pkg/gpt are authoritative
// regardless of what this heuristic reports.
func DetectFromMBR(s store.RandomAccessStore, sectorSize uint32) (*Geometry, error) {
	record, err := mbr.ReadAt(s, 0)
	if err != nil {
		return nil, err
	}
	if !record.IsValid() {
		return nil, nil
	}

	var maxHead, maxSector uint32
	for i := range record.PartitionEntries {
		e := &record.PartitionEntries[i]
		if h := uint32(e.EndCHS[0]); h > maxHead {
			maxHead = h
		}
		if sec := uint32(e.EndCHS[1]); sec > maxSector {
			maxSector = sec
		}
	}

	if maxHead == 0 || maxSector == 0 {
		return nil, nil
	}
	maxHead++

	capacity, err := s.Capacity()
	if err != nil {
		return nil, err
	}

	cylinderSize := uint64(maxHead) * uint64(maxSector) * uint64(sectorSize)
	cylinders := (uint64(capacity) + cylinderSize - 1) / cylinderSize

	g := Geometry{
		Cylinders:       cylinders,
		HeadsPerCyl:     maxHead,
		SectorsPerTrack: maxSector,
		BytesPerSector:  sectorSize,
	}
	return &g, nil
}
