// Package geometry implements the VHD CHS geometry algorithm (spec.md §6)
// and a secondary, display-only geometry heuristic for MBR-only disks that
// the original source keeps separate from VHD addressing (SPEC_FULL.md §4).
package geometry

import "fmt"

// SectorSize is the fixed on-disk addressing unit for VHD containers,
// independent of the backing store's own physical/logical sector size.
const SectorSize = 512

// Geometry is a Cylinder/Head/Sector description of a disk's addressable
// space. LBA addressing is authoritative everywhere in this library;
// Geometry exists purely to populate the VHD footer and for display.
type Geometry struct {
	Cylinders       uint64
	HeadsPerCyl     uint32
	SectorsPerTrack uint32
	BytesPerSector  uint32
}

// CHS constructs a geometry at the standard 512-byte sector size.
func CHS(cylinders uint64, heads, sectors uint32) Geometry {
	return Geometry{
		Cylinders:       cylinders,
		HeadsPerCyl:     heads,
		SectorsPerTrack: sectors,
		BytesPerSector:  SectorSize,
	}
}

// String renders "(C/H/S)", or "(C/H/S:bps)" when the sector size isn't
// the standard 512 bytes.
func (g Geometry) String() string {
	if g.BytesPerSector == SectorSize {
		return fmt.Sprintf("(%d/%d/%d)", g.Cylinders, g.HeadsPerCyl, g.SectorsPerTrack)
	}
	return fmt.Sprintf("(%d/%d/%d:%d)", g.Cylinders, g.HeadsPerCyl, g.SectorsPerTrack, g.BytesPerSector)
}

// CapacityInSectors returns the total addressable sectors implied by the
// geometry (may not equal the disk's declared capacity; it is always an
// integral number of cylinders).
func (g Geometry) CapacityInSectors() uint64 {
	return g.Cylinders * uint64(g.HeadsPerCyl) * uint64(g.SectorsPerTrack)
}

// Capacity returns the byte capacity implied by the geometry.
func (g Geometry) Capacity() uint64 {
	return g.CapacityInSectors() * uint64(g.BytesPerSector)
}

// WithVHDCapacity computes the CHS geometry the VHD format requires for a
// given declared capacity, at the standard 512-byte sector size. This is
// the canonical algorithm referenced by spec.md §6: starting at 17
// sectors/track, increasing to 31 then 63 on overflow, cylinders capped at
// 65535, heads in {4..16, 255}.
func WithVHDCapacity(capacity uint64) Geometry {
	return WithVHDCapacityAndSector(capacity, SectorSize)
}

// WithVHDCapacityAndSector is WithVHDCapacity parameterized by sector size,
// matching the original algorithm's generalized entry point.
func WithVHDCapacityAndSector(capacity uint64, sectorSize uint32) Geometry {
	var totalSectors uint32
	if capacity > 65535*16*255*uint64(sectorSize) {
		totalSectors = 65535 * 16 * 255
	} else {
		totalSectors = uint32(capacity / uint64(sectorSize))
	}

	var headsPerCyl, sectorsPerTrack uint32
	if totalSectors > 65535*16*63 {
		headsPerCyl, sectorsPerTrack = 255, 16
	} else {
		sectorsPerTrack = 17
		cylTimesHeads := totalSectors / sectorsPerTrack
		headsPerCyl = (cylTimesHeads + 1023) / 1024
		if headsPerCyl < 4 {
			headsPerCyl = 4
		}

		if cylTimesHeads >= headsPerCyl*1024 || headsPerCyl > 16 {
			sectorsPerTrack = 31
			headsPerCyl = 16
			cylTimesHeads = totalSectors / sectorsPerTrack
		}

		if cylTimesHeads >= headsPerCyl*1024 {
			sectorsPerTrack = 63
			headsPerCyl = 16
		}
	}

	cylinders := totalSectors / sectorsPerTrack / headsPerCyl

	return Geometry{
		Cylinders:       uint64(cylinders),
		HeadsPerCyl:     headsPerCyl,
		SectorsPerTrack: sectorsPerTrack,
		BytesPerSector:  sectorSize,
	}
}

// LBAAssisted computes the legacy LBA-assisted translation geometry
// (used by some BIOS/CHS-aware tools), supplemented from the original
// source's Geometry::lba_assisted. Not used by the VHD footer, which
// always uses WithVHDCapacity; exposed for display/diagnostic parity.
func LBAAssisted(capacity uint64) Geometry {
	const mib = 1 << 20

	var heads uint32
	switch {
	case capacity <= 504*mib:
		heads = 16
	case capacity <= 1008*mib:
		heads = 32
	case capacity <= 2016*mib:
		heads = 64
	case capacity <= 4032*mib:
		heads = 128
	default:
		heads = 255
	}

	const sectors = 63
	cylinders := capacity / uint64(sectors*heads*SectorSize)
	if cylinders > 1024 {
		cylinders = 1024
	}
	return CHS(cylinders, heads, sectors)
}
