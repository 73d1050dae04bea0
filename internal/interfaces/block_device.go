// File: internal/interfaces/block_device.go
package interfaces

// BlockDeviceReader provides methods for reading from block devices
type BlockDeviceReader interface {
	// ReadBytes reads exactly length bytes starting at byte offset on the device
	ReadBytes(device string, offset int64, length int) ([]byte, error)

	// BlockSize returns the logical block size of the device in bytes
	BlockSize(device string) (uint32, error)
}

// BlockDeviceWriter provides methods for writing to block devices
type BlockDeviceWriter interface {
	// WriteBytes writes exactly len(data) bytes at byte offset, never truncating or
	// extending the device
	WriteBytes(device string, offset int64, data []byte) error
}

// DeviceResolver maps symbolic partition paths to the devices holding them
type DeviceResolver interface {
	// ResolveDevice returns the whole-disk device that holds the partition behind path
	ResolveDevice(path string) (string, error)

	// Exists reports whether path exists
	Exists(path string) bool
}

// BootPropertyReader exposes properties set by the bootloader
type BootPropertyReader interface {
	// BootSlotSuffix returns the suffix of the slot the system was booted from ("_a" or "_b")
	BootSlotSuffix() (string, error)
}

// DeviceIO is the complete device capability consumed by the boot control core
type DeviceIO interface {
	BlockDeviceReader
	BlockDeviceWriter
	DeviceResolver
	BootPropertyReader
}
