package vhd

import "errors"

// Error is the VHD-specific failure taxonomy from spec.md §7, mirroring
// the original source's VhdError enum (_examples/original_source/src/vhd/error.rs).
var (
	ErrFileTooSmall                = errors.New("vhd: file too small")
	ErrInvalidHeaderCookie         = errors.New("vhd: invalid header cookie")
	ErrInvalidHeaderChecksum       = errors.New("vhd: invalid header checksum")
	ErrInvalidSparseHeaderCookie   = errors.New("vhd: invalid sparse header cookie")
	ErrInvalidSparseHeaderChecksum = errors.New("vhd: invalid sparse header checksum")
	ErrInvalidSparseHeaderOffset   = errors.New("vhd: invalid sparse header BAT offset")
	ErrDiskSizeTooBig              = errors.New("vhd: disk size too big for VHD")
	ErrInvalidBlockIndex           = errors.New("vhd: invalid block index")
	ErrUnexpectedBlockId           = errors.New("vhd: unexpected block id state")
	ErrReadBeyondEOD               = errors.New("vhd: read beyond end of data")
	ErrWriteBeyondEOD              = errors.New("vhd: write beyond end of data")
	ErrDifferencingUnsupported     = errors.New("vhd: creating differencing disks is not supported")
)

// UnknownTypeError reports a disk-type code the reader does not recognize.
type UnknownTypeError struct {
	Code uint32
}

func (e *UnknownTypeError) Error() string {
	return "vhd: unknown disk type code"
}
