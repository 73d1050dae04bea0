// Package testutil builds disk and devinfo images for tests.
package testutil

import (
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bootctl/internal/helpers"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/devinfo"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/gpt"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// Disk layout of GptImage: primary header at LBA 1, primary entries at LBA 2, backup
// entries at LBA 62, backup header at LBA 63. Four entries fill exactly one block.
const (
	BlockSize         = 512
	DiskBlocks        = 64
	PrimaryEntriesLba = 2
	BackupEntriesLba  = DiskBlocks - 2
	BackupHeaderLba   = DiskBlocks - 1
	EntryCount        = 4
)

// AndroidBootTypeGUID is the partition type GUID of Android boot partitions.
var AndroidBootTypeGUID = uuid.MustParse("49a4d17f-93a3-45c1-a0de-f50b2ebe2599")

// DiskGUID is the disk GUID written into GptImage headers.
var DiskGUID = uuid.MustParse("8f0e3a1c-5d7b-4c2e-9a61-2b3c4d5e6f70")

// GptEntry builds a partition entry whose unique GUID is derived from name.
func GptEntry(name string, first, last, attr uint64) *gpt.Entry {
	var ent types.GptEntryT
	ent.TypeGuid = gpt.UUIDToGUID(AndroidBootTypeGUID)
	ent.Guid = gpt.UUIDToGUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)))
	ent.FirstLba = first
	ent.LastLba = last
	ent.Attr = attr
	copy(ent.Name[:], helpers.EncodeUTF16LE(name, types.GptNameSize))
	return gpt.NewEntry(ent)
}

// GptImage builds a consistent DiskBlocks*BlockSize disk with boot_a, boot_b, super and
// one empty entry. Primary and backup copies carry valid checksums.
func GptImage(attrA, attrB uint64) []byte {
	entries := []*gpt.Entry{
		GptEntry(types.BootPartitionA, 8, 15, attrA),
		GptEntry(types.BootPartitionB, 16, 23, attrB),
		GptEntry("super", 24, 55, 0),
		gpt.NewEntry(types.GptEntryT{}),
	}
	entryBytes := gpt.EncodeEntries(entries)

	header := func(current, backup, start uint64) []byte {
		h := gpt.NewHeader(types.GptHeaderT{
			Signature:      types.GptSignature,
			Revision:       0x00010000,
			HeaderSize:     types.GptHeaderSize,
			CurrentLba:     current,
			BackupLba:      backup,
			FirstUsableLba: 8,
			LastUsableLba:  BackupEntriesLba - 1,
			DiskGuid:       gpt.UUIDToGUID(DiskGUID),
			StartLba:       start,
			EntryCount:     EntryCount,
			EntrySize:      types.GptEntrySize,
			EntriesCrc32:   gpt.EntriesCrc32(entries),
		})
		h.SetCrc32(h.ComputeCrc32())
		return h.Encode()
	}

	disk := make([]byte, BlockSize*DiskBlocks)
	copy(disk[BlockSize:], header(1, BackupHeaderLba, PrimaryEntriesLba))
	copy(disk[BlockSize*PrimaryEntriesLba:], entryBytes)
	copy(disk[BlockSize*BackupEntriesLba:], entryBytes)
	copy(disk[BlockSize*BackupHeaderLba:], header(BackupHeaderLba, 1, BackupEntriesLba))
	return disk
}

// DevinfoImage builds a 128-byte devinfo record with both slots at retry count 7 and a
// marker byte in each reserved region.
func DevinfoImage(major, minor uint16, flagsA, flagsB uint8) []byte {
	raw := types.DevInfoT{
		Magic:    types.DevInfoMagic,
		VerMajor: major,
		VerMinor: minor,
	}
	raw.Slots[0] = types.DevInfoSlotDataT{RetryCount: 7, Flags: flagsA}
	raw.Slots[1] = types.DevInfoSlotDataT{RetryCount: 7, Flags: flagsB}
	raw.Unused[0] = 0x5A
	raw.Unused1[types.DevInfoUnused1Size-1] = 0xA5
	return devinfo.New(raw).Encode()
}
