package status

import (
	"github.com/deploymenttheory/go-bootctl/internal/types"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

// Response represents the slot status of a device
type Response struct {
	Authority     string     `json:"authority" yaml:"authority"`
	NumberSlots   uint32     `json:"number_slots" yaml:"number_slots"`
	CurrentSlot   string     `json:"current_slot,omitempty" yaml:"current_slot,omitempty"`
	ActiveSlot    string     `json:"active_slot,omitempty" yaml:"active_slot,omitempty"`
	Slots         []SlotInfo `json:"slots" yaml:"slots"`
	LastError     string     `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CurrentSlotOK bool       `json:"-" yaml:"-"`
}

// SlotInfo represents the state of one slot
type SlotInfo struct {
	Suffix     string `json:"suffix" yaml:"suffix"`
	Active     bool   `json:"active" yaml:"active"`
	Successful bool   `json:"successful" yaml:"successful"`
	Bootable   bool   `json:"bootable" yaml:"bootable"`
}

// FromSnapshot builds a response from a session snapshot
func FromSnapshot(snap app.Snapshot) *Response {
	resp := &Response{
		Authority:   snap.Authority,
		NumberSlots: snap.NumberSlots,
		LastError:   snap.LastError,
		Slots:       make([]SlotInfo, 0, snap.NumberSlots),
	}

	for slot := uint32(0); slot < snap.NumberSlots && slot < types.SlotCount; slot++ {
		state := snap.Slots[slot]
		resp.Slots = append(resp.Slots, SlotInfo{
			Suffix:     types.SlotSuffix(slot),
			Active:     state.Active,
			Successful: state.Successful,
			Bootable:   !state.Unbootable,
		})
		if state.Active {
			resp.ActiveSlot = types.SlotSuffix(slot)
		}
	}

	return resp
}
