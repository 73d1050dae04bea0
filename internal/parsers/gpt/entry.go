// File: internal/parsers/gpt/entry.go
package gpt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-bootctl/internal/helpers"
	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// ErrInvalidEntry is returned when entry bytes cannot be decoded.
var ErrInvalidEntry = errors.New("gpt: invalid partition entry")

// Entry holds one decoded partition entry. The GUIDs and name are kept as raw bytes so
// that Encode reproduces the decoded bytes exactly.
type Entry struct {
	ent types.GptEntryT
}

// Compile-time check to ensure Entry implements PartitionAttributes
var _ interfaces.PartitionAttributes = (*Entry)(nil)

// NewEntry wraps an already populated entry structure.
func NewEntry(ent types.GptEntryT) *Entry {
	return &Entry{ent: ent}
}

// DecodeEntry parses a single serialized 128-byte partition entry.
func DecodeEntry(data []byte) (*Entry, error) {
	if len(data) != types.GptEntrySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidEntry, types.GptEntrySize, len(data))
	}
	return decodeEntry(helpers.NewBinaryReader(data, binary.LittleEndian))
}

// DecodeEntries parses count consecutive entries from data.
func DecodeEntries(data []byte, count uint32) ([]*Entry, error) {
	need := int(count) * types.GptEntrySize
	if len(data) < need {
		return nil, fmt.Errorf("%w: entry array needs %d bytes, got %d", ErrInvalidEntry, need, len(data))
	}

	br := helpers.NewBinaryReader(data[:need], binary.LittleEndian)
	entries := make([]*Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := decodeEntry(br)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partition entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(br *helpers.BinaryReader) (*Entry, error) {
	e := &Entry{}
	var err error

	if err = br.ReadInto(e.ent.TypeGuid[:]); err != nil {
		return nil, err
	}
	if err = br.ReadInto(e.ent.Guid[:]); err != nil {
		return nil, err
	}
	if e.ent.FirstLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if e.ent.LastLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if e.ent.Attr, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if err = br.ReadInto(e.ent.Name[:]); err != nil {
		return nil, err
	}

	return e, nil
}

// Encode serializes the entry into its 128-byte on-disk form.
func (e *Entry) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(types.GptEntrySize)
	e.encodeTo(helpers.NewBinaryWriter(&buf, binary.LittleEndian))
	return buf.Bytes()
}

func (e *Entry) encodeTo(bw *helpers.BinaryWriter) {
	_ = bw.WriteBytes(e.ent.TypeGuid[:])
	_ = bw.WriteBytes(e.ent.Guid[:])
	_ = bw.WriteUint64(e.ent.FirstLba)
	_ = bw.WriteUint64(e.ent.LastLba)
	_ = bw.WriteUint64(e.ent.Attr)
	_ = bw.WriteBytes(e.ent.Name[:])
}

// EncodeEntries serializes entries back to back, in order.
func EncodeEntries(entries []*Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(len(entries) * types.GptEntrySize)
	bw := helpers.NewBinaryWriter(&buf, binary.LittleEndian)
	for _, e := range entries {
		e.encodeTo(bw)
	}
	return buf.Bytes()
}

// EntriesCrc32 returns the CRC32 (IEEE) over the concatenated encoded entries.
func EntriesCrc32(entries []*Entry) uint32 {
	return crc32.ChecksumIEEE(EncodeEntries(entries))
}

// Name returns the partition name decoded from UTF-16LE.
func (e *Entry) Name() string {
	return helpers.DecodeUTF16LE(e.ent.Name[:])
}

// TypeGUID returns the partition type GUID in canonical form.
func (e *Entry) TypeGUID() uuid.UUID {
	return GUIDToUUID(e.ent.TypeGuid)
}

// GUID returns the unique partition GUID in canonical form.
func (e *Entry) GUID() uuid.UUID {
	return GUIDToUUID(e.ent.Guid)
}

func (e *Entry) FirstLBA() uint64 {
	return e.ent.FirstLba
}

func (e *Entry) LastLBA() uint64 {
	return e.ent.LastLba
}

// IsEmpty reports whether the entry is unused (all-zero type GUID).
func (e *Entry) IsEmpty() bool {
	return e.ent.TypeGuid == [types.GptGUIDSize]byte{}
}

// Attributes returns the raw attribute word.
func (e *Entry) Attributes() uint64 {
	return e.ent.Attr
}

// AttributeSet reports whether bit is set. Any position is accepted; positions past 63
// are never set.
func (e *Entry) AttributeSet(bit uint) bool {
	return e.ent.Attr&(uint64(1)<<bit) != 0
}

// SetAttribute sets or clears bit in the attribute word.
func (e *Entry) SetAttribute(bit uint, value bool) {
	if value {
		e.ent.Attr |= uint64(1) << bit
	} else {
		e.ent.Attr &^= uint64(1) << bit
	}
}

// Raw returns a copy of the underlying entry structure.
func (e *Entry) Raw() types.GptEntryT {
	return e.ent
}
