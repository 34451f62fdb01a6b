//go:build windows

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package rawdisk

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// sectorAlign is the alignment Windows requires for unbuffered volume I/O.
// Physical sector size can exceed this on Advanced Format disks, but 512
// always divides it, so aligning to 512 is always safe.
const sectorAlign = 512

// windowsHandle wraps a raw volume/disk handle opened with CreateFile,
// performing the sector-aligned bounce-buffer dance Windows requires for
// unbuffered access at arbitrary offsets.
type windowsHandle struct {
	handle windows.Handle
}

func openDevice(path string, readWrite bool) (Handle, error) {
	access := uint32(windows.GENERIC_READ)
	if readWrite {
		access |= windows.GENERIC_WRITE
	}

	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("rawdisk: open %q: %w", path, err)
	}
	return &windowsHandle{handle: handle}, nil
}

func (h *windowsHandle) ReadAt(p []byte, off int64) (int, error) {
	alignedOffset := off / sectorAlign * sectorAlign
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorAlign - 1) / sectorAlign) * sectorAlign

	buf := make([]byte, alignedSize)

	var bytesRead uint32
	ov := &windows.Overlapped{
		Offset:     uint32(alignedOffset),
		OffsetHigh: uint32(alignedOffset >> 32),
	}

	err := windows.ReadFile(h.handle, buf, &bytesRead, ov)
	if err != nil {
		if err == syscall.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(h.handle, ov, &bytesRead, true)
		}
		if err != nil {
			return 0, fmt.Errorf("rawdisk: aligned read at %d: %w", off, err)
		}
	}

	return copy(p, buf[alignmentDiff:]), nil
}

// WriteAt always performs a read-modify-write through an aligned bounce
// buffer, even when p already fills whole sectors, since Windows rejects
// unbuffered writes that aren't themselves sector-aligned.
func (h *windowsHandle) WriteAt(p []byte, off int64) (int, error) {
	alignedOffset := off / sectorAlign * sectorAlign
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorAlign - 1) / sectorAlign) * sectorAlign

	buf := make([]byte, alignedSize)
	if _, err := h.ReadAt(buf, alignedOffset); err != nil {
		return 0, fmt.Errorf("rawdisk: read-modify-write fetch at %d: %w", alignedOffset, err)
	}
	copy(buf[alignmentDiff:], p)

	var bytesWritten uint32
	ov := &windows.Overlapped{
		Offset:     uint32(alignedOffset),
		OffsetHigh: uint32(alignedOffset >> 32),
	}

	err := windows.WriteFile(h.handle, buf, &bytesWritten, ov)
	if err != nil {
		if err == syscall.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(h.handle, ov, &bytesWritten, true)
		}
		if err != nil {
			return 0, fmt.Errorf("rawdisk: aligned write at %d: %w", off, err)
		}
	}

	return len(p), nil
}

func (h *windowsHandle) Sync() error {
	return windows.FlushFileBuffers(h.handle)
}

func (h *windowsHandle) Close() error {
	return windows.CloseHandle(h.handle)
}

// diskGeometry mirrors the fixed-layout DISK_GEOMETRY structure returned by
// IOCTL_DISK_GET_DRIVE_GEOMETRY.
type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

func geometry(h Handle) (int64, int64, error) {
	wh, ok := h.(*windowsHandle)
	if !ok {
		return 0, 0, fmt.Errorf("rawdisk: geometry: unexpected handle type %T", h)
	}

	var geo diskGeometry
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		wh.handle,
		ioctlDiskGetDriveGeometry,
		nil,
		0,
		(*byte)(unsafe.Pointer(&geo)),
		uint32(unsafe.Sizeof(geo)),
		&bytesReturned,
		nil,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("rawdisk: IOCTL_DISK_GET_DRIVE_GEOMETRY: %w", err)
	}

	size := geo.Cylinders * int64(geo.TracksPerCylinder) * int64(geo.SectorsPerTrack) * int64(geo.BytesPerSector)
	return int64(geo.BytesPerSector), size, nil
}
