package device

import "errors"

var (
	// ErrDeviceNotFound is returned when a device or image path does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrShortRead is returned when fewer bytes than requested could be read.
	ErrShortRead = errors.New("short read")

	// ErrShortWrite is returned when a write would extend the device or was cut short.
	ErrShortWrite = errors.New("short write")

	// ErrSlotSuffixUnknown is returned when no boot slot suffix is configured or reported.
	ErrSlotSuffixUnknown = errors.New("boot slot suffix not found")
)
