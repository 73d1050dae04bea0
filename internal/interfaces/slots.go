package interfaces

import (
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// PartitionAttributes provides bit-level access to a GPT entry's attribute word
type PartitionAttributes interface {
	// Name returns the partition name
	Name() string

	// Attributes returns the raw 64-bit attribute word
	Attributes() uint64

	// AttributeSet reports whether the given bit is set
	AttributeSet(bit uint) bool

	// SetAttribute sets or clears the given bit
	SetAttribute(bit uint, value bool)
}

// SlotAuthority answers slot queries from whichever metadata format governs the device
type SlotAuthority interface {
	// Kind identifies the metadata format
	Kind() types.AuthorityKind

	// IsSlotBootable reports whether the slot is not marked unbootable
	IsSlotBootable(slot uint32) (bool, error)

	// IsSlotMarkedSuccessful reports whether the slot booted successfully
	IsSlotMarkedSuccessful(slot uint32) (bool, error)

	// ActiveBootSlot returns the slot that will be booted next
	ActiveBootSlot() (uint32, error)

	// SetActiveBootSlot makes slot the only active slot and persists the change
	SetActiveBootSlot(slot uint32) error
}

// BootController is the slot-control surface published to hosts
type BootController interface {
	// Refresh re-selects the authority and recomputes both slot states
	Refresh() error

	// Authority returns the authority selected by the last refresh
	Authority() types.AuthorityKind

	// NumberSlots returns how many boot slots exist on the device
	NumberSlots() uint32

	// CurrentSlot returns the slot the system is running from
	CurrentSlot() (uint32, error)

	// SlotState returns the state computed by the last refresh
	SlotState(slot uint32) (types.SlotState, error)

	// SetActiveBootSlot activates slot and refreshes
	SetActiveBootSlot(slot uint32) error

	// MarkBootSuccessful marks the running slot successful
	MarkBootSuccessful() error
}
