// Package types implements the on-disk data structures used for Android A/B slot metadata.
// Layouts follow the gs101 boot control HAL (GptUtils.h, DevInfo.h) and UEFI 2.10 section 5.3.
package types

// GUID Partition Table (UEFI 2.10, section 5.3)

// GptSignature is the value of the signature field, "EFI PART" read as a little-endian uint64.
const GptSignature uint64 = 0x5452415020494645

// GptHeaderSize is the size in bytes of the serialized GPT header.
const GptHeaderSize = 92

// GptEntrySize is the size in bytes of one serialized partition entry.
const GptEntrySize = 128

// GptNameSize is the size in bytes of the UTF-16LE partition name field (36 code units).
const GptNameSize = 72

// GptGUIDSize is the size in bytes of a GUID as stored in the table.
const GptGUIDSize = 16

// GptHeaderCrcOffset is the byte offset of the header's own crc32 field.
const GptHeaderCrcOffset = 16

// GptHeaderT represents the GPT header.
// Reference: GptUtils.h gpt_hdr
type GptHeaderT struct {
	// Always GptSignature for a valid header.
	Signature uint64
	// Revision of the GPT format, 0x00010000 for 1.0.
	Revision uint32
	// Size of the header in bytes. Always GptHeaderSize.
	HeaderSize uint32
	// CRC32 over the header with this field set to zero.
	Crc32 uint32
	// Must be zero; preserved verbatim.
	Reserved uint32
	// LBA containing this copy of the header.
	CurrentLba uint64
	// LBA containing the other copy of the header.
	BackupLba uint64
	// First LBA usable by partitions.
	FirstUsableLba uint64
	// Last LBA usable by partitions.
	LastUsableLba uint64
	// Disk GUID in mixed-endian form.
	DiskGuid [GptGUIDSize]byte
	// Starting LBA of the partition entry array for this copy.
	StartLba uint64
	// Number of entries in the array.
	EntryCount uint32
	// Size of one entry. Always GptEntrySize.
	EntrySize uint32
	// CRC32 over the whole serialized entry array.
	EntriesCrc32 uint32
}

// GptEntryT represents one row of the partition entry array.
// Reference: GptUtils.h gpt_entry
type GptEntryT struct {
	// Partition type GUID, mixed-endian.
	TypeGuid [GptGUIDSize]byte
	// Unique partition GUID, mixed-endian.
	Guid [GptGUIDSize]byte
	// First LBA of the partition.
	FirstLba uint64
	// Last LBA of the partition, inclusive.
	LastLba uint64
	// Attribute flags. Bits 48-63 are type specific; Android uses them for A/B state.
	Attr uint64
	// Partition name, UTF-16LE, NUL padded.
	Name [GptNameSize]byte
}

// A/B attribute bits used by the bootloader on boot_a/boot_b entries.
// Reference: BootControl.cpp AB_ATTR_*
const (
	AbAttrActiveBit     = 54
	AbAttrSuccessfulBit = 58
	AbAttrUnbootableBit = 59

	AbAttrActive     uint64 = 1 << AbAttrActiveBit
	AbAttrSuccessful uint64 = 1 << AbAttrSuccessfulBit
	AbAttrUnbootable uint64 = 1 << AbAttrUnbootableBit
)

// BootPartitionPrefix marks the entries that are rewritten when the table is synced.
const BootPartitionPrefix = "boot_"

// Boot partition entry names.
const (
	BootPartitionA = "boot_a"
	BootPartitionB = "boot_b"
)
