// Package devinfo decodes and encodes the vendor devinfo record that carries A/B slot state
// on devices whose bootloader does not consult GPT attribute bits.
package devinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/helpers"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// ErrInvalidDevinfo is returned when a record cannot be decoded or is not authoritative.
var ErrInvalidDevinfo = errors.New("devinfo: invalid record")

// Logger receives validation diagnostics for this package.
var Logger logrus.FieldLogger = logrus.WithField("component", "devinfo")

// DevInfo is a decoded devinfo record. Reserved regions are kept so that Encode
// reproduces the decoded bytes exactly.
type DevInfo struct {
	magic    uint32
	verMajor uint16
	verMinor uint16
	unused   [types.DevInfoUnusedSize]byte
	slots    [types.DevInfoSlotCount]*SlotData
	unused1  [types.DevInfoUnused1Size]byte
}

// New builds a record from a raw structure.
func New(raw types.DevInfoT) *DevInfo {
	d := &DevInfo{
		magic:    raw.Magic,
		verMajor: raw.VerMajor,
		verMinor: raw.VerMinor,
		unused:   raw.Unused,
		unused1:  raw.Unused1,
	}
	for i := range raw.Slots {
		d.slots[i] = NewSlotData(raw.Slots[i])
	}
	return d
}

// Decode parses a serialized 128-byte devinfo record. Decoding does not check the magic
// or version; use Valid for that.
func Decode(data []byte) (*DevInfo, error) {
	if len(data) != types.DevInfoSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidDevinfo, types.DevInfoSize, len(data))
	}

	br := helpers.NewBinaryReader(data, binary.LittleEndian)
	d := &DevInfo{}
	var err error

	if d.magic, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if d.verMajor, err = br.ReadUint16(); err != nil {
		return nil, err
	}
	if d.verMinor, err = br.ReadUint16(); err != nil {
		return nil, err
	}
	if err = br.ReadInto(d.unused[:]); err != nil {
		return nil, err
	}
	for i := range d.slots {
		if d.slots[i], err = decodeSlotData(br); err != nil {
			return nil, fmt.Errorf("failed to parse slot %d: %w", i, err)
		}
	}
	if err = br.ReadInto(d.unused1[:]); err != nil {
		return nil, err
	}

	return d, nil
}

// Encode serializes the record into its 128-byte form.
func (d *DevInfo) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(types.DevInfoSize)
	bw := helpers.NewBinaryWriter(&buf, binary.LittleEndian)

	_ = bw.WriteUint32(d.magic)
	_ = bw.WriteUint16(d.verMajor)
	_ = bw.WriteUint16(d.verMinor)
	_ = bw.WriteBytes(d.unused[:])
	for _, sd := range d.slots {
		_ = bw.WriteBytes(sd.Encode())
	}
	_ = bw.WriteBytes(d.unused1[:])

	return buf.Bytes()
}

func (d *DevInfo) Magic() uint32 {
	return d.magic
}

func (d *DevInfo) VerMajor() uint16 {
	return d.verMajor
}

func (d *DevInfo) VerMinor() uint16 {
	return d.verMinor
}

// Version returns the combined (major<<16 | minor) version.
func (d *DevInfo) Version() uint32 {
	return uint32(d.verMajor)<<16 | uint32(d.verMinor)
}

// Valid reports whether the record is authoritative for slot state: the magic must match
// and the version must be at least 3.3.
func (d *DevInfo) Valid() bool {
	if d.magic != types.DevInfoMagic {
		Logger.Debugf("devinfo magic mismatch 0x%08x", d.magic)
		return false
	}

	if d.Version() < types.DevInfoMinVersion {
		Logger.Infof("devinfo version %d.%d does not carry slot data", d.verMajor, d.verMinor)
		return false
	}

	return true
}

// Slot returns the record for slot index i, or nil when i is out of range.
func (d *DevInfo) Slot(i uint32) *SlotData {
	if i >= types.DevInfoSlotCount {
		return nil
	}
	return d.slots[i]
}

// Raw returns a copy of the record as a raw structure.
func (d *DevInfo) Raw() types.DevInfoT {
	raw := types.DevInfoT{
		Magic:    d.magic,
		VerMajor: d.verMajor,
		VerMinor: d.verMinor,
		Unused:   d.unused,
		Unused1:  d.unused1,
	}
	for i, sd := range d.slots {
		raw.Slots[i] = sd.Raw()
	}
	return raw
}
