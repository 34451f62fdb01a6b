//go:build linux

package devinfo

import (
	"os"
	"path/filepath"
	"strings"
)

// Probe reads vendor/bus decoration for a block device path (e.g.
// "/dev/sda") from Linux sysfs, mirroring the teacher's /etc/os-release
// text-file scraping but aimed at /sys/block/<dev> instead of the host OS.
func Probe(devicePath string) StorageDeviceInfo {
	devName := filepath.Base(devicePath)
	sysDir := filepath.Join("/sys/block", devName, "device")

	if _, err := os.Stat(sysDir); err != nil {
		return unknownInfo
	}

	return StorageDeviceInfo{
		BusType:         detectBusType(sysDir),
		VendorID:        readSysTrim(filepath.Join(sysDir, "vendor")),
		ProductID:       readSysTrim(filepath.Join(sysDir, "model")),
		ProductRevision: readSysTrim(filepath.Join(sysDir, "rev")),
		SerialNumber:    readSysTrim(filepath.Join(sysDir, "serial")),
	}
}

func readSysTrim(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// detectBusType follows the device/subsystem symlink, which points at one
// of /sys/bus/{scsi,usb,nvme,ata,...} on a real kernel.
func detectBusType(sysDir string) StorageBusType {
	target, err := os.Readlink(filepath.Join(sysDir, "subsystem"))
	if err != nil {
		return BusUnknown
	}

	switch filepath.Base(target) {
	case "usb":
		return BusUsb
	case "nvme":
		return BusNvme
	case "scsi":
		return BusScsi
	case "ata", "pata", "sata":
		return BusAta
	case "iscsi":
		return BusIscsi
	case "virtio":
		return BusVirtual
	default:
		return BusUnknown
	}
}
