// Package devinfo reports vendor/bus decoration for a block device, for
// display purposes only; no CLI command calls it. It never informs any
// parsing decision (SPEC_FULL.md §4).
package devinfo

import "fmt"

// StorageBusType classifies the transport a block device is attached
// through, adapted from the original source's enum of the same name.
type StorageBusType int

const (
	BusUnknown StorageBusType = iota
	BusAta
	BusScsi
	BusUsb
	BusUsb3
	BusIscsi
	BusSas
	BusSata
	BusNvme
	BusVirtual
)

var busNames = map[StorageBusType]string{
	BusUnknown: "Unknown",
	BusAta:     "Ata",
	BusScsi:    "Scsi",
	BusUsb:     "Usb",
	BusUsb3:    "Usb3",
	BusIscsi:   "Iscsi",
	BusSas:     "Sas",
	BusSata:    "Sata",
	BusNvme:    "Nvme",
	BusVirtual: "Virtual",
}

func (b StorageBusType) String() string {
	if name, ok := busNames[b]; ok {
		return name
	}
	return fmt.Sprintf("StorageBusType(%d)", int(b))
}

// IsVirtual reports whether the device is a virtual (non-physical) disk.
func (b StorageBusType) IsVirtual() bool { return b == BusVirtual }

// IsUSB reports whether the device sits behind a USB bridge, which often
// reports the bridge's own vendor strings rather than the disk's.
func (b StorageBusType) IsUSB() bool { return b == BusUsb || b == BusUsb3 }

// StorageDeviceInfo is vendor/bus decoration for one block device.
type StorageDeviceInfo struct {
	BusType         StorageBusType
	VendorID        string
	ProductID       string
	ProductRevision string
	SerialNumber    string
}

// unknownInfo is returned when the device can't be probed at all (a plain
// file path, or a platform with no sysfs adapter).
var unknownInfo = StorageDeviceInfo{BusType: BusUnknown}
