package services

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootctl/internal/parsers/gpt"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

func TestGptStoreLoad(t *testing.T) {
	dev := gptDevice(t, types.AbAttrActive, types.AbAttrSuccessful)
	store := NewGptStore(dev, testDisk, nil)

	require.NoError(t, store.Load())

	assert.Equal(t, uint32(testBlockSize), store.BlockSize())
	assert.Len(t, store.Entries(), 4)
	assert.Equal(t, uint64(testBackupHeaderLba), store.PrimaryHeader().BackupLba())
	assert.Equal(t, uint64(testBackupEntriesLba), store.BackupHeader().StartLba())

	bootA := store.PartitionEntry("boot_a")
	require.NotNil(t, bootA)
	assert.True(t, bootA.AttributeSet(types.AbAttrActiveBit))

	bootB := store.PartitionEntry("boot_b")
	require.NotNil(t, bootB)
	assert.True(t, bootB.AttributeSet(types.AbAttrSuccessfulBit))

	assert.Nil(t, store.PartitionEntry("vendor_boot_a"))
	assert.Empty(t, dev.writes)
}

func TestGptStoreLoadFailures(t *testing.T) {
	t.Run("invalid primary signature", func(t *testing.T) {
		dev := gptDevice(t, 0, 0)
		dev.images[testDisk][testBlockSize] ^= 0xFF

		err := NewGptStore(dev, testDisk, nil).Load()
		assert.ErrorIs(t, err, gpt.ErrInvalidHeader)
	})

	t.Run("invalid backup entry size", func(t *testing.T) {
		dev := gptDevice(t, 0, 0)
		dev.images[testDisk][testBlockSize*testBackupHeaderLba+84] = 0

		err := NewGptStore(dev, testDisk, nil).Load()
		assert.ErrorIs(t, err, gpt.ErrInvalidHeader)
	})

	t.Run("missing device", func(t *testing.T) {
		err := NewGptStore(newFakeDevice(), testDisk, nil).Load()
		assert.Error(t, err)
	})

	t.Run("failure keeps previous state", func(t *testing.T) {
		dev := gptDevice(t, types.AbAttrActive, 0)
		store := NewGptStore(dev, testDisk, nil)
		require.NoError(t, store.Load())

		dev.images[testDisk][testBlockSize] ^= 0xFF
		require.Error(t, store.Load())

		assert.NotNil(t, store.PartitionEntry("boot_a"))
		assert.Len(t, store.Entries(), 4)
	})
}

func TestGptStoreSyncWithoutChangesWritesNothing(t *testing.T) {
	dev := gptDevice(t, types.AbAttrActive, 0)
	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())

	wrote, err := store.Sync()
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Empty(t, dev.writes)
}

func TestGptStoreSyncWriteOrder(t *testing.T) {
	dev := gptDevice(t, types.AbAttrActive, 0)
	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())

	store.PartitionEntry("boot_a").SetAttribute(types.AbAttrActiveBit, false)
	store.PartitionEntry("boot_b").SetAttribute(types.AbAttrActiveBit, true)

	wrote, err := store.Sync()
	require.NoError(t, err)
	assert.True(t, wrote)

	primaryEntries := int64(testBlockSize * testPrimaryEntriesLba)
	backupEntries := int64(testBlockSize * testBackupEntriesLba)
	expected := []recordedWrite{
		{testDisk, testBlockSize, types.GptHeaderSize},
		{testDisk, primaryEntries, types.GptEntrySize},
		{testDisk, primaryEntries + types.GptEntrySize, types.GptEntrySize},
		{testDisk, backupEntries, types.GptEntrySize},
		{testDisk, backupEntries + types.GptEntrySize, types.GptEntrySize},
		{testDisk, testBlockSize * testBackupHeaderLba, types.GptHeaderSize},
	}
	assert.Equal(t, expected, dev.writes)

	t.Run("second sync is a no-op", func(t *testing.T) {
		dev.resetWrites()
		wrote, err := store.Sync()
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Empty(t, dev.writes)
	})

	t.Run("reloaded table is consistent", func(t *testing.T) {
		reloaded := NewGptStore(dev, testDisk, nil)
		require.NoError(t, reloaded.Load())

		assert.False(t, reloaded.PartitionEntry("boot_a").AttributeSet(types.AbAttrActiveBit))
		assert.True(t, reloaded.PartitionEntry("boot_b").AttributeSet(types.AbAttrActiveBit))

		report, err := reloaded.CrcReport()
		require.NoError(t, err)
		assert.True(t, report.Consistent(), "%+v", report)
		assert.Equal(t, report.EntriesStored, reloaded.BackupHeader().EntriesCrc32())
	})
}

func TestGptStoreSyncStaysInsideSmallerBackupArray(t *testing.T) {
	dev := gptDevice(t, types.AbAttrActive, 0)
	// The backup header declares a single entry.
	binary.LittleEndian.PutUint32(dev.images[testDisk][testBlockSize*testBackupHeaderLba+80:], 1)

	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())
	require.Equal(t, uint32(1), store.BackupHeader().EntryCount())

	store.PartitionEntry("boot_a").SetAttribute(types.AbAttrActiveBit, false)
	store.PartitionEntry("boot_b").SetAttribute(types.AbAttrActiveBit, true)

	wrote, err := store.Sync()
	require.NoError(t, err)
	assert.True(t, wrote)

	primaryEntries := int64(testBlockSize * testPrimaryEntriesLba)
	backupEntries := int64(testBlockSize * testBackupEntriesLba)
	expected := []recordedWrite{
		{testDisk, testBlockSize, types.GptHeaderSize},
		{testDisk, primaryEntries, types.GptEntrySize},
		{testDisk, primaryEntries + types.GptEntrySize, types.GptEntrySize},
		{testDisk, backupEntries, types.GptEntrySize},
		{testDisk, testBlockSize * testBackupHeaderLba, types.GptHeaderSize},
	}
	assert.Equal(t, expected, dev.writes)

	backupEnd := backupEntries + types.GptEntrySize
	for _, w := range dev.writes {
		if w.offset >= backupEntries && w.offset < testBlockSize*testBackupHeaderLba {
			assert.LessOrEqual(t, w.offset+int64(w.length), backupEnd, "write at %d is outside the backup entry array", w.offset)
		}
	}
}

func TestGptStoreEntriesCrcMatchesIndependentChecksum(t *testing.T) {
	dev := gptDevice(t, 0, 0)
	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())

	store.PartitionEntry("boot_b").SetAttribute(types.AbAttrUnbootableBit, true)
	_, err := store.Sync()
	require.NoError(t, err)

	img := dev.images[testDisk]
	start := testBlockSize * testPrimaryEntriesLba
	want := crc32.ChecksumIEEE(img[start : start+4*types.GptEntrySize])
	assert.Equal(t, want, store.PrimaryHeader().EntriesCrc32())
	assert.True(t, store.PrimaryHeader().Crc32Valid())
	assert.True(t, store.BackupHeader().Crc32Valid())
}

func TestGptStoreSyncAbortsOnWriteFailure(t *testing.T) {
	dev := gptDevice(t, types.AbAttrActive, 0)
	dev.failWriteAt = 2
	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())

	store.PartitionEntry("boot_a").SetAttribute(types.AbAttrSuccessfulBit, true)

	wrote, err := store.Sync()
	assert.ErrorIs(t, err, errInjected)
	assert.True(t, wrote)
	assert.Len(t, dev.writes, 2, "writes after the failure must not be attempted")
}

func TestGptStoreRequiresLoad(t *testing.T) {
	store := NewGptStore(newFakeDevice(), testDisk, nil)

	_, err := store.Sync()
	assert.ErrorIs(t, err, ErrStoreNotLoaded)

	_, err = store.CrcReport()
	assert.ErrorIs(t, err, ErrStoreNotLoaded)
}

func TestGptStoreCrcReportDetectsStaleHeader(t *testing.T) {
	dev := gptDevice(t, 0, 0)
	dev.images[testDisk][testBlockSize+16] ^= 0x01

	store := NewGptStore(dev, testDisk, nil)
	require.NoError(t, store.Load())

	report, err := store.CrcReport()
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.NotEqual(t, report.HeaderStored, report.HeaderComputed)
	assert.Equal(t, report.EntriesStored, report.EntriesComputed)

	wrote, err := store.Sync()
	require.NoError(t, err)
	assert.True(t, wrote, "a stale header checksum is rewritten")
}
