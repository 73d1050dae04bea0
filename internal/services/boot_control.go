package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// Default partition paths on Android devices.
const (
	DefaultDevinfoPath = "/dev/block/by-name/devinfo"
	DefaultBootAPath   = "/dev/block/by-name/boot_a"
	DefaultBootBPath   = "/dev/block/by-name/boot_b"
)

// BootControlConfig holds the paths and logging options for a BootControl.
type BootControlConfig struct {
	DevinfoPath string
	BootAPath   string
	BootBPath   string
	TraceBytes  bool
	Logger      logrus.FieldLogger
}

// flagSetter is implemented by authorities that allow setting arbitrary slot flags.
type flagSetter interface {
	SetSlotFlag(slot uint32, bit uint) error
}

// BootControl selects the slot authority for a device and publishes derived slot state.
// It performs no locking; callers serialize access.
type BootControl struct {
	dev       interfaces.DeviceIO
	config    BootControlConfig
	logger    logrus.FieldLogger
	authority interfaces.SlotAuthority
	states    [types.SlotCount]types.SlotState
}

// Compile-time check to ensure BootControl implements BootController
var _ interfaces.BootController = (*BootControl)(nil)

// NewBootControl creates a BootControl. Empty paths fall back to the Android defaults.
// Call Refresh before querying slot state.
func NewBootControl(dev interfaces.DeviceIO, config BootControlConfig) *BootControl {
	if config.DevinfoPath == "" {
		config.DevinfoPath = DefaultDevinfoPath
	}
	if config.BootAPath == "" {
		config.BootAPath = DefaultBootAPath
	}
	if config.BootBPath == "" {
		config.BootBPath = DefaultBootBPath
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &BootControl{
		dev:    dev,
		config: config,
		logger: logger.WithField("component", "bootcontrol"),
	}
}

// Refresh selects the authority, preferring a valid devinfo record over GPT, and
// recomputes the state of both slots. When neither validates the authority is cleared
// and ErrUnrecoverableState is returned.
func (bc *BootControl) Refresh() error {
	authority, err := bc.selectAuthority()
	if err != nil {
		bc.authority = nil
		bc.states = [types.SlotCount]types.SlotState{}
		return err
	}
	bc.authority = authority
	bc.logger.WithField("authority", authority.Kind().String()).Debug("selected slot authority")

	n := bc.NumberSlots()
	var states [types.SlotCount]types.SlotState
	for slot := uint32(0); slot < n && slot < types.SlotCount; slot++ {
		bootable, err := bc.IsSlotBootable(slot)
		if err != nil {
			return err
		}
		successful, err := bc.IsSlotMarkedSuccessful(slot)
		if err != nil {
			return err
		}
		states[slot].Unbootable = !bootable
		states[slot].Successful = successful
	}

	active, err := bc.ActiveBootSlot()
	if err != nil {
		return err
	}
	if active < n && active < types.SlotCount {
		states[active].Active = true
	}

	bc.states = states
	return nil
}

func (bc *BootControl) selectAuthority() (interfaces.SlotAuthority, error) {
	devinfoAuth, devinfoErr := loadDevinfoAuthority(bc.dev, bc.config.DevinfoPath, bc.logger, bc.config.TraceBytes)
	if devinfoErr == nil {
		return devinfoAuth, nil
	}
	bc.logger.WithError(devinfoErr).Debug("devinfo is not authoritative, falling back to gpt")

	gptAuth, gptErr := loadGptAuthority(bc.dev, bc.config.BootAPath, bc.config.BootBPath, bc.logger, bc.config.TraceBytes)
	if gptErr == nil {
		return gptAuth, nil
	}

	bc.logger.WithError(gptErr).Error("failed to validate boot control")
	return nil, fmt.Errorf("%w: devinfo: %v; gpt: %v", ErrUnrecoverableState, devinfoErr, gptErr)
}

// Authority returns the kind of authority selected by the last refresh.
func (bc *BootControl) Authority() types.AuthorityKind {
	if bc.authority == nil {
		return types.AuthorityNone
	}
	return bc.authority.Kind()
}

// NumberSlots counts the boot partition paths that exist.
func (bc *BootControl) NumberSlots() uint32 {
	var slots uint32
	if bc.dev.Exists(bc.config.BootAPath) {
		slots++
	}
	if bc.dev.Exists(bc.config.BootBPath) {
		slots++
	}
	return slots
}

// CurrentSlot returns the slot the system booted from, per the bootloader's slot suffix.
func (bc *BootControl) CurrentSlot() (uint32, error) {
	suffix, err := bc.dev.BootSlotSuffix()
	if err != nil {
		return 0, fmt.Errorf("failed to read boot slot suffix: %w", err)
	}
	return types.SlotFromSuffix(suffix), nil
}

// SlotSuffix returns the suffix of slot, or an empty string when it is out of range.
func (bc *BootControl) SlotSuffix(slot uint32) string {
	return types.SlotSuffix(slot)
}

// checkSlot applies the zero-slot and range rules shared by the per-slot queries. It
// returns false with a nil error when there are no slots.
func (bc *BootControl) checkSlot(slot uint32) (bool, error) {
	n := bc.NumberSlots()
	if n == 0 {
		return false, nil
	}
	if slot >= n {
		return false, fmt.Errorf("%w: %d (device has %d)", ErrInvalidSlot, slot, n)
	}
	if bc.authority == nil {
		return false, ErrUnrecoverableState
	}
	return true, nil
}

// IsSlotBootable reports whether slot is not marked unbootable. With no slots it is false.
func (bc *BootControl) IsSlotBootable(slot uint32) (bool, error) {
	ok, err := bc.checkSlot(slot)
	if !ok {
		return false, err
	}
	return bc.authority.IsSlotBootable(slot)
}

// IsSlotMarkedSuccessful reports whether slot is marked successful. With no slots it is true.
func (bc *BootControl) IsSlotMarkedSuccessful(slot uint32) (bool, error) {
	ok, err := bc.checkSlot(slot)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return bc.authority.IsSlotMarkedSuccessful(slot)
}

// ActiveBootSlot returns the slot marked active. With no slots it is 0.
func (bc *BootControl) ActiveBootSlot() (uint32, error) {
	if bc.NumberSlots() == 0 {
		return 0, nil
	}
	if bc.authority == nil {
		return 0, ErrUnrecoverableState
	}
	return bc.authority.ActiveBootSlot()
}

// SlotState returns the state computed by the last refresh.
func (bc *BootControl) SlotState(slot uint32) (types.SlotState, error) {
	if slot >= types.SlotCount {
		return types.SlotState{}, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return bc.states[slot], nil
}

// SetActiveBootSlot makes slot the only active slot, persists it and refreshes.
func (bc *BootControl) SetActiveBootSlot(slot uint32) error {
	if slot >= types.SlotCount {
		bc.logger.WithField("slot", slot).Error("invalid slot")
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if bc.authority == nil {
		return ErrUnrecoverableState
	}

	if err := bc.authority.SetActiveBootSlot(slot); err != nil {
		return fmt.Errorf("failed to set active boot slot %s: %w", types.SlotSuffix(slot), err)
	}
	bc.logger.WithFields(logrus.Fields{
		"slot":      types.SlotSuffix(slot),
		"authority": bc.authority.Kind().String(),
	}).Info("set active boot slot")

	return bc.Refresh()
}

// SetSlotFlag sets an attribute bit on slot's boot entry. Only GPT authority supports it.
func (bc *BootControl) SetSlotFlag(slot uint32, bit uint) error {
	if bc.authority == nil {
		return ErrUnrecoverableState
	}
	setter, ok := bc.authority.(flagSetter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnlyFlag, bc.authority.Kind())
	}
	if err := setter.SetSlotFlag(slot, bit); err != nil {
		return fmt.Errorf("failed to set flag %d on slot %d: %w", bit, slot, err)
	}
	return bc.Refresh()
}

// MarkBootSuccessful marks the running slot successful.
func (bc *BootControl) MarkBootSuccessful() error {
	slot, err := bc.CurrentSlot()
	if err != nil {
		return err
	}
	return bc.SetSlotFlag(slot, types.AbAttrSuccessfulBit)
}

// IsUnrecoverable reports whether err came from a refresh that found no usable metadata.
func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrUnrecoverableState)
}
