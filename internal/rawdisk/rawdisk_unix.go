//go:build !windows && !linux

package rawdisk

import (
	"fmt"
	"io"
	"os"
)

func openDevice(path string, readWrite bool) (Handle, error) {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}
	return os.OpenFile(path, flag, 0)
}

// geometry has no portable block-device ioctl outside Linux here, so it
// falls back to seeking to the end of the device file for the size and
// leaves the sector size for the caller to default.
func geometry(h Handle) (int64, int64, error) {
	f, ok := h.(*os.File)
	if !ok {
		return 0, 0, fmt.Errorf("rawdisk: geometry: unexpected handle type %T", h)
	}

	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, err
	}
	if _, err := f.Seek(cur, io.SeekStart); err != nil {
		return 0, 0, err
	}
	return 0, end, nil
}
