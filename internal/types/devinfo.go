package types

// Devinfo (gs101 DevInfo.h)
// A vendor record that stores A/B state on devices where the bootloader does not use
// GPT attribute bits.

// DevInfoMagic is the value of the magic field, "DEVI" read as a little-endian uint32.
const DevInfoMagic uint32 = 0x49564544

// DevInfoMinVersion is the lowest (major<<16 | minor) version that carries A/B slot data.
const DevInfoMinVersion uint32 = 0x00030003

// DevInfoSize is the size in bytes of the serialized record.
const DevInfoSize = 128

// DevInfoSlotDataSize is the size in bytes of one serialized slot record.
const DevInfoSlotDataSize = 4

// DevInfoSlotCount is the number of slot records in the record.
const DevInfoSlotCount = 2

// Reserved region sizes.
const (
	DevInfoUnusedSize     = 40
	DevInfoUnused1Size    = 72
	DevInfoSlotUnusedSize = 2
)

// DevInfoSlotDataT represents the per-slot A/B data.
// Reference: DevInfo.h devinfo_ab_slot_data_t
type DevInfoSlotDataT struct {
	// Remaining boot attempts before the slot is marked unbootable.
	RetryCount uint8
	// Bitfield of DevInfoFlag* values.
	Flags uint8
	// Reserved; preserved verbatim.
	Unused [DevInfoSlotUnusedSize]byte
}

// DevInfoT represents the devinfo record.
// Reference: DevInfo.h devinfo_t
type DevInfoT struct {
	// Always DevInfoMagic for a valid record.
	Magic uint32
	// Major version of the record layout.
	VerMajor uint16
	// Minor version of the record layout.
	VerMinor uint16
	// Reserved; preserved verbatim.
	Unused [DevInfoUnusedSize]byte
	// A/B data for slot a and slot b.
	Slots [DevInfoSlotCount]DevInfoSlotDataT
	// Reserved; preserved verbatim.
	Unused1 [DevInfoUnused1Size]byte
}

// Slot flag bits within DevInfoSlotDataT.Flags.
const (
	DevInfoFlagUnbootable uint8 = 1 << 0
	DevInfoFlagSuccessful uint8 = 1 << 1
	DevInfoFlagActive     uint8 = 1 << 2
	DevInfoFlagFastbootOk uint8 = 1 << 3
)
