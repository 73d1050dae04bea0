// File: internal/parsers/gpt/header.go
package gpt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/helpers"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// ErrInvalidHeader is returned when header bytes cannot be decoded or fail validation.
var ErrInvalidHeader = errors.New("gpt: invalid header")

// Logger receives validation diagnostics for this package.
var Logger logrus.FieldLogger = logrus.WithField("component", "gpt")

// Header holds a decoded GPT header. Every field, including reserved ones, is kept so
// that Encode reproduces the decoded bytes exactly.
type Header struct {
	hdr types.GptHeaderT
}

// NewHeader wraps an already populated header structure.
func NewHeader(hdr types.GptHeaderT) *Header {
	return &Header{hdr: hdr}
}

// DecodeHeader parses a serialized GPT header.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) != types.GptHeaderSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, types.GptHeaderSize, len(data))
	}

	br := helpers.NewBinaryReader(data, binary.LittleEndian)
	h := &Header{}
	var err error

	if h.hdr.Signature, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if h.hdr.Revision, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.HeaderSize, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.Crc32, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.Reserved, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.CurrentLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if h.hdr.BackupLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if h.hdr.FirstUsableLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if h.hdr.LastUsableLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if err = br.ReadInto(h.hdr.DiskGuid[:]); err != nil {
		return nil, err
	}
	if h.hdr.StartLba, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if h.hdr.EntryCount, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.EntrySize, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if h.hdr.EntriesCrc32, err = br.ReadUint32(); err != nil {
		return nil, err
	}

	return h, nil
}

// Encode serializes the header into its 92-byte on-disk form.
func (h *Header) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(types.GptHeaderSize)
	bw := helpers.NewBinaryWriter(&buf, binary.LittleEndian)

	// Writes into a bytes.Buffer cannot fail.
	_ = bw.WriteUint64(h.hdr.Signature)
	_ = bw.WriteUint32(h.hdr.Revision)
	_ = bw.WriteUint32(h.hdr.HeaderSize)
	_ = bw.WriteUint32(h.hdr.Crc32)
	_ = bw.WriteUint32(h.hdr.Reserved)
	_ = bw.WriteUint64(h.hdr.CurrentLba)
	_ = bw.WriteUint64(h.hdr.BackupLba)
	_ = bw.WriteUint64(h.hdr.FirstUsableLba)
	_ = bw.WriteUint64(h.hdr.LastUsableLba)
	_ = bw.WriteBytes(h.hdr.DiskGuid[:])
	_ = bw.WriteUint64(h.hdr.StartLba)
	_ = bw.WriteUint32(h.hdr.EntryCount)
	_ = bw.WriteUint32(h.hdr.EntrySize)
	_ = bw.WriteUint32(h.hdr.EntriesCrc32)

	return buf.Bytes()
}

// Validate performs the structural sanity check: signature, header size and entry size.
// It does not verify the header CRC.
func (h *Header) Validate() bool {
	if h.hdr.Signature != types.GptSignature {
		Logger.Errorf("invalid gpt signature 0x%x", h.hdr.Signature)
		return false
	}

	if h.hdr.HeaderSize != types.GptHeaderSize {
		Logger.Errorf("invalid gpt header size %d", h.hdr.HeaderSize)
		return false
	}

	if h.hdr.EntrySize != types.GptEntrySize {
		Logger.Errorf("invalid gpt entry size %d", h.hdr.EntrySize)
		return false
	}

	return true
}

// ComputeCrc32 returns the CRC32 of the encoded header with the crc32 field treated as zero.
// The stored value is left untouched.
func (h *Header) ComputeCrc32() uint32 {
	data := h.Encode()
	binary.LittleEndian.PutUint32(data[types.GptHeaderCrcOffset:types.GptHeaderCrcOffset+4], 0)
	return crc32.ChecksumIEEE(data)
}

// Crc32Valid reports whether the stored header CRC matches the computed one.
func (h *Header) Crc32Valid() bool {
	return h.ComputeCrc32() == h.hdr.Crc32
}

// Raw returns a copy of the underlying header structure.
func (h *Header) Raw() types.GptHeaderT {
	return h.hdr
}

func (h *Header) Signature() uint64 {
	return h.hdr.Signature
}

func (h *Header) Revision() uint32 {
	return h.hdr.Revision
}

func (h *Header) HeaderSize() uint32 {
	return h.hdr.HeaderSize
}

func (h *Header) Crc32() uint32 {
	return h.hdr.Crc32
}

func (h *Header) SetCrc32(crc uint32) {
	h.hdr.Crc32 = crc
}

func (h *Header) CurrentLba() uint64 {
	return h.hdr.CurrentLba
}

func (h *Header) BackupLba() uint64 {
	return h.hdr.BackupLba
}

func (h *Header) FirstUsableLba() uint64 {
	return h.hdr.FirstUsableLba
}

func (h *Header) LastUsableLba() uint64 {
	return h.hdr.LastUsableLba
}

// DiskGUID returns the disk GUID in canonical form.
func (h *Header) DiskGUID() uuid.UUID {
	return GUIDToUUID(h.hdr.DiskGuid)
}

func (h *Header) StartLba() uint64 {
	return h.hdr.StartLba
}

func (h *Header) EntryCount() uint32 {
	return h.hdr.EntryCount
}

func (h *Header) EntrySize() uint32 {
	return h.hdr.EntrySize
}

func (h *Header) EntriesCrc32() uint32 {
	return h.hdr.EntriesCrc32
}

func (h *Header) SetEntriesCrc32(crc uint32) {
	h.hdr.EntriesCrc32 = crc
}
