// File: internal/helpers/binary.go
package helpers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// BinaryReader reads fixed-width fields from an in-memory buffer, advancing a cursor
// by exactly the width of every field it decodes.
type BinaryReader struct {
	buf   *bytes.Reader
	order binary.ByteOrder
}

// NewBinaryReader creates a new binary reader over data with the specified byte order.
// A nil order defaults to little-endian.
func NewBinaryReader(data []byte, order binary.ByteOrder) *BinaryReader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &BinaryReader{
		buf:   bytes.NewReader(data),
		order: order,
	}
}

// ReadUint8 reads a uint8
func (br *BinaryReader) ReadUint8() (uint8, error) {
	return br.buf.ReadByte()
}

// ReadUint16 reads a uint16
func (br *BinaryReader) ReadUint16() (uint16, error) {
	b, err := br.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return br.order.Uint16(b), nil
}

// ReadUint32 reads a uint32
func (br *BinaryReader) ReadUint32() (uint32, error) {
	b, err := br.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return br.order.Uint32(b), nil
}

// ReadUint64 reads a uint64
func (br *BinaryReader) ReadUint64() (uint64, error) {
	b, err := br.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return br.order.Uint64(b), nil
}

// ReadBytes reads a slice of bytes with the specified length
func (br *BinaryReader) ReadBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(br.buf, buf); err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", length, br.Offset(), err)
	}
	return buf, nil
}

// ReadInto fills dst completely from the buffer.
func (br *BinaryReader) ReadInto(dst []byte) error {
	if _, err := io.ReadFull(br.buf, dst); err != nil {
		return fmt.Errorf("reading %d bytes at offset %d: %w", len(dst), br.Offset(), err)
	}
	return nil
}

// Offset returns the current cursor position.
func (br *BinaryReader) Offset() int {
	return int(br.buf.Size()) - br.buf.Len()
}

// BinaryWriter helps with writing binary data
type BinaryWriter struct {
	writer io.Writer
	order  binary.ByteOrder
}

// NewBinaryWriter creates a new binary writer with specified byte order
func NewBinaryWriter(w io.Writer, order binary.ByteOrder) *BinaryWriter {
	if order == nil {
		order = binary.LittleEndian
	}
	return &BinaryWriter{
		writer: w,
		order:  order,
	}
}

// WriteUint8 writes a uint8
func (bw *BinaryWriter) WriteUint8(val uint8) error {
	return bw.WriteBytes([]byte{val})
}

// WriteUint16 writes a uint16
func (bw *BinaryWriter) WriteUint16(val uint16) error {
	var b [2]byte
	bw.order.PutUint16(b[:], val)
	return bw.WriteBytes(b[:])
}

// WriteUint32 writes a uint32
func (bw *BinaryWriter) WriteUint32(val uint32) error {
	var b [4]byte
	bw.order.PutUint32(b[:], val)
	return bw.WriteBytes(b[:])
}

// WriteUint64 writes a uint64
func (bw *BinaryWriter) WriteUint64(val uint64) error {
	var b [8]byte
	bw.order.PutUint64(b[:], val)
	return bw.WriteBytes(b[:])
}

// WriteBytes writes a slice of bytes
func (bw *BinaryWriter) WriteBytes(data []byte) error {
	n, err := bw.writer.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return nil
}

// DecodeNulString decodes an ASCII/UTF-8 region, stopping at the first NUL byte.
func DecodeNulString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// DecodeUTF16LE decodes a UTF-16 Little Endian byte slice into a Go string, stopping at the first null character (0x0000).
func DecodeUTF16LE(b []byte) string {
	u16s := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		val := binary.LittleEndian.Uint16(b[i : i+2])
		if val == 0 {
			break
		}
		u16s = append(u16s, val)
	}
	return string(utf16.Decode(u16s))
}

// EncodeUTF16LE encodes s as UTF-16LE into a NUL-padded region of size bytes.
// Characters that do not fit are dropped.
func EncodeUTF16LE(s string, size int) []byte {
	buf := make([]byte, size)
	for i, r := range utf16.Encode([]rune(s)) {
		if i*2+1 >= size {
			break
		}
		binary.LittleEndian.PutUint16(buf[i*2:], r)
	}
	return buf
}
