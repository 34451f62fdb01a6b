//go:build linux

package rawdisk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func openDevice(path string, readWrite bool) (Handle, error) {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}
	return os.OpenFile(path, flag, 0)
}

// geometry reads the logical block size and total size of a Linux block
// device via BLKSSZGET/BLKGETSIZE64, rewired through golang.org/x/sys/unix's
// typed ioctl wrappers instead of a hand-rolled syscall.Syscall(SYS_IOCTL,...)
// call.
func geometry(h Handle) (int64, int64, error) {
	f, ok := h.(*os.File)
	if !ok {
		return 0, 0, fmt.Errorf("rawdisk: geometry: unexpected handle type %T", h)
	}

	ss, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		return 0, 0, fmt.Errorf("rawdisk: ioctl BLKSSZGET: %w", err)
	}

	sz, err := unix.IoctlGetUint64(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return 0, 0, fmt.Errorf("rawdisk: ioctl BLKGETSIZE64: %w", err)
	}

	return int64(ss), int64(sz), nil
}
