package services

import "errors"

var (
	// ErrInvalidSlot is returned for a slot index outside the available slots.
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrUnrecoverableState is returned by Refresh when neither devinfo nor GPT metadata
	// validates, and by mutations attempted after such a refresh.
	ErrUnrecoverableState = errors.New("failed to validate boot control: no usable slot metadata")

	// ErrReadOnlyFlag is returned when a slot flag other than active is changed while
	// devinfo governs slot state.
	ErrReadOnlyFlag = errors.New("slot flag is read-only under devinfo authority")

	// ErrStoreNotLoaded is returned by GptStore operations that require a successful Load.
	ErrStoreNotLoaded = errors.New("gpt store not loaded")

	// ErrPartitionNotFound is returned when a boot partition entry is missing from the table.
	ErrPartitionNotFound = errors.New("partition entry not found")

	// ErrDeviceMismatch is returned when boot_a and boot_b do not live on the same disk.
	ErrDeviceMismatch = errors.New("boot partitions are on different devices")
)
