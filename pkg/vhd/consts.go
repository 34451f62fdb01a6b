package vhd

// SectorSize is the fixed on-disk addressing unit for VHD containers
// (spec.md §3), independent of the backing store's own sector size.
const SectorSize = 512
