package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/gpt"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// gptAuthority answers slot queries from the A/B attribute bits of the boot_a and boot_b
// partition entries. Queries read the table loaded when the authority was selected;
// mutations always load a fresh table first.
type gptAuthority struct {
	dev        interfaces.DeviceIO
	disk       string
	logger     logrus.FieldLogger
	traceBytes bool
	store      *GptStore
}

// Compile-time check to ensure gptAuthority implements SlotAuthority
var _ interfaces.SlotAuthority = (*gptAuthority)(nil)

// loadGptAuthority resolves both boot partitions to their disk and checks that the disk's
// GPT has entries for both.
func loadGptAuthority(dev interfaces.DeviceIO, bootA, bootB string, logger logrus.FieldLogger, traceBytes bool) (*gptAuthority, error) {
	logger = logger.WithField("authority", types.AuthorityGpt.String())

	diskA, err := dev.ResolveDevice(bootA)
	if err != nil {
		logger.Error("could not get device path for slot 0")
		return nil, fmt.Errorf("failed to resolve %s: %w", bootA, err)
	}

	diskB, err := dev.ResolveDevice(bootB)
	if err != nil {
		logger.Error("could not get device path for slot 1")
		return nil, fmt.Errorf("failed to resolve %s: %w", bootB, err)
	}

	if diskA != diskB {
		logger.Errorf("unexpected device paths %s and %s", diskA, diskB)
		return nil, fmt.Errorf("%w: %s, %s", ErrDeviceMismatch, diskA, diskB)
	}

	a := &gptAuthority{
		dev:        dev,
		disk:       diskA,
		logger:     logger.WithField("device", diskA),
		traceBytes: traceBytes,
	}

	store, err := a.loadStore()
	if err != nil {
		return nil, err
	}
	a.store = store

	return a, nil
}

// loadStore loads the disk's GPT and checks that both boot entries are present.
func (a *gptAuthority) loadStore() (*GptStore, error) {
	store := NewGptStore(a.dev, a.disk, a.logger)
	store.SetTraceBytes(a.traceBytes)

	if err := store.Load(); err != nil {
		a.logger.Error("failed to load gpt data")
		return nil, err
	}

	if store.PartitionEntry(types.BootPartitionA) == nil || store.PartitionEntry(types.BootPartitionB) == nil {
		a.logger.Error("failed to get entries for boot partitions")
		return nil, fmt.Errorf("%w: %s or %s on %s", ErrPartitionNotFound, types.BootPartitionA, types.BootPartitionB, a.disk)
	}

	return store, nil
}

func (a *gptAuthority) Kind() types.AuthorityKind {
	return types.AuthorityGpt
}

func bootEntryName(slot uint32) string {
	if slot != 0 {
		return types.BootPartitionB
	}
	return types.BootPartitionA
}

func (a *gptAuthority) isSlotFlagSet(slot uint32, bit uint) (bool, error) {
	if slot >= types.SlotCount {
		return false, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return a.store.PartitionEntry(bootEntryName(slot)).AttributeSet(bit), nil
}

func (a *gptAuthority) IsSlotBootable(slot uint32) (bool, error) {
	unbootable, err := a.isSlotFlagSet(slot, types.AbAttrUnbootableBit)
	if err != nil {
		return false, err
	}
	return !unbootable, nil
}

func (a *gptAuthority) IsSlotMarkedSuccessful(slot uint32) (bool, error) {
	return a.isSlotFlagSet(slot, types.AbAttrSuccessfulBit)
}

func (a *gptAuthority) ActiveBootSlot() (uint32, error) {
	active, err := a.isSlotFlagSet(1, types.AbAttrActiveBit)
	if err != nil {
		return 0, err
	}
	if active {
		return 1, nil
	}
	return 0, nil
}

// SetActiveBootSlot loads a fresh table, moves the active bit to slot and syncs.
func (a *gptAuthority) SetActiveBootSlot(slot uint32) error {
	if slot >= types.SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	store, err := a.loadStore()
	if err != nil {
		return err
	}

	activeEntry := store.PartitionEntry(bootEntryName(slot))
	inactiveEntry := store.PartitionEntry(bootEntryName(1 - slot))

	a.logEntries("before", activeEntry, inactiveEntry)

	inactiveEntry.SetAttribute(types.AbAttrActiveBit, false)
	activeEntry.SetAttribute(types.AbAttrActiveBit, true)

	a.logEntries("after", activeEntry, inactiveEntry)

	if _, err := store.Sync(); err != nil {
		return err
	}
	a.store = store
	return nil
}

// SetSlotFlag sets one attribute bit on the slot's boot entry and syncs.
func (a *gptAuthority) SetSlotFlag(slot uint32, bit uint) error {
	if slot >= types.SlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	store, err := a.loadStore()
	if err != nil {
		return err
	}

	store.PartitionEntry(bootEntryName(slot)).SetAttribute(bit, true)

	if _, err := store.Sync(); err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *gptAuthority) logEntries(stage string, active, inactive *gpt.Entry) {
	a.logger.Debugf("slot active attributes %s 0x%x", stage, active.Attributes())
	a.logger.Debugf("slot inactive attributes %s 0x%x", stage, inactive.Attributes())
}
