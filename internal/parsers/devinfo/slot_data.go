package devinfo

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-bootctl/internal/helpers"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// SlotData is the per-slot A/B record embedded in a devinfo record. Only the active flag
// is mutable.
type SlotData struct {
	data types.DevInfoSlotDataT
}

// NewSlotData wraps an already populated slot record.
func NewSlotData(data types.DevInfoSlotDataT) *SlotData {
	return &SlotData{data: data}
}

// DecodeSlotData parses a serialized 4-byte slot record.
func DecodeSlotData(data []byte) (*SlotData, error) {
	if len(data) != types.DevInfoSlotDataSize {
		return nil, fmt.Errorf("%w: slot data needs %d bytes, got %d", ErrInvalidDevinfo, types.DevInfoSlotDataSize, len(data))
	}
	return decodeSlotData(helpers.NewBinaryReader(data, binary.LittleEndian))
}

func decodeSlotData(br *helpers.BinaryReader) (*SlotData, error) {
	sd := &SlotData{}
	var err error

	if sd.data.RetryCount, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if sd.data.Flags, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if err = br.ReadInto(sd.data.Unused[:]); err != nil {
		return nil, err
	}

	return sd, nil
}

// Encode serializes the slot record into its 4-byte form.
func (sd *SlotData) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(types.DevInfoSlotDataSize)
	bw := helpers.NewBinaryWriter(&buf, binary.LittleEndian)

	_ = bw.WriteUint8(sd.data.RetryCount)
	_ = bw.WriteUint8(sd.data.Flags)
	_ = bw.WriteBytes(sd.data.Unused[:])

	return buf.Bytes()
}

func (sd *SlotData) RetryCount() uint8 {
	return sd.data.RetryCount
}

// Flags returns the raw flags byte.
func (sd *SlotData) Flags() uint8 {
	return sd.data.Flags
}

func (sd *SlotData) Unbootable() bool {
	return sd.flagSet(types.DevInfoFlagUnbootable)
}

func (sd *SlotData) Successful() bool {
	return sd.flagSet(types.DevInfoFlagSuccessful)
}

func (sd *SlotData) Active() bool {
	return sd.flagSet(types.DevInfoFlagActive)
}

func (sd *SlotData) FastbootOK() bool {
	return sd.flagSet(types.DevInfoFlagFastbootOk)
}

// SetActive sets or clears the active flag, leaving every other bit untouched.
func (sd *SlotData) SetActive(active bool) {
	if active {
		sd.data.Flags |= types.DevInfoFlagActive
	} else {
		sd.data.Flags &^= types.DevInfoFlagActive
	}
}

func (sd *SlotData) flagSet(flag uint8) bool {
	return sd.data.Flags&flag != 0
}

// Raw returns a copy of the underlying slot structure.
func (sd *SlotData) Raw() types.DevInfoSlotDataT {
	return sd.data
}
