package services

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/gpt"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// GptStore holds the GPT of one disk for a single load/sync cycle: the primary header,
// the primary entry array and the backup header.
type GptStore struct {
	dev        interfaces.DeviceIO
	device     string
	logger     logrus.FieldLogger
	traceBytes bool

	blockSize uint32
	primary   *gpt.Header
	backup    *gpt.Header
	entries   []*gpt.Entry
	byName    map[string]*gpt.Entry
	loaded    bool
}

// CrcReport compares stored and recomputed checksums of a loaded table.
type CrcReport struct {
	HeaderStored          uint32 `json:"header_stored" yaml:"header_stored"`
	HeaderComputed        uint32 `json:"header_computed" yaml:"header_computed"`
	EntriesStored         uint32 `json:"entries_stored" yaml:"entries_stored"`
	EntriesComputed       uint32 `json:"entries_computed" yaml:"entries_computed"`
	BackupHeaderStored    uint32 `json:"backup_header_stored" yaml:"backup_header_stored"`
	BackupHeaderComputed  uint32 `json:"backup_header_computed" yaml:"backup_header_computed"`
	BackupEntriesStored   uint32 `json:"backup_entries_stored" yaml:"backup_entries_stored"`
	BackupEntriesMismatch bool   `json:"backup_entries_mismatch" yaml:"backup_entries_mismatch"`
}

// Consistent reports whether every stored checksum matches its recomputed value.
func (r CrcReport) Consistent() bool {
	return r.HeaderStored == r.HeaderComputed &&
		r.EntriesStored == r.EntriesComputed &&
		r.BackupHeaderStored == r.BackupHeaderComputed &&
		!r.BackupEntriesMismatch
}

// NewGptStore creates an empty store for device. A nil logger uses the standard logger.
func NewGptStore(dev interfaces.DeviceIO, device string, logger logrus.FieldLogger) *GptStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GptStore{
		dev:    dev,
		device: device,
		logger: logger.WithField("device", device),
	}
}

// SetTraceBytes enables hex dumps of every region read or written, logged at trace level.
func (s *GptStore) SetTraceBytes(enabled bool) {
	s.traceBytes = enabled
}

// Device returns the disk this store reads and writes.
func (s *GptStore) Device() string {
	return s.device
}

// Load reads the primary header, the primary entry array and the backup header. On
// failure the store keeps whatever it held before.
func (s *GptStore) Load() error {
	blockSize, err := s.dev.BlockSize(s.device)
	if err != nil {
		return fmt.Errorf("failed to get block size of %s: %w", s.device, err)
	}
	if blockSize == 0 {
		return fmt.Errorf("invalid block size 0 for %s", s.device)
	}

	primary, err := s.readHeader(int64(blockSize), "primary")
	if err != nil {
		return err
	}

	entriesStart := int64(blockSize) * int64(primary.StartLba())
	entriesSize := int(primary.EntryCount()) * int(primary.EntrySize())
	data, err := s.dev.ReadBytes(s.device, entriesStart, entriesSize)
	if err != nil {
		return fmt.Errorf("failed to read gpt entries at offset %d: %w", entriesStart, err)
	}
	s.trace("primary entries", entriesStart, data)

	entries, err := gpt.DecodeEntries(data, primary.EntryCount())
	if err != nil {
		return fmt.Errorf("failed to decode gpt entries: %w", err)
	}

	backup, err := s.readHeader(int64(blockSize)*int64(primary.BackupLba()), "backup")
	if err != nil {
		return err
	}

	byName := make(map[string]*gpt.Entry, len(entries))
	for _, e := range entries {
		byName[e.Name()] = e
	}

	s.blockSize = blockSize
	s.primary = primary
	s.backup = backup
	s.entries = entries
	s.byName = byName
	s.loaded = true

	s.logger.WithFields(logrus.Fields{
		"block_size":  blockSize,
		"entry_count": primary.EntryCount(),
		"backup_lba":  primary.BackupLba(),
	}).Debug("loaded gpt")

	return nil
}

func (s *GptStore) readHeader(offset int64, which string) (*gpt.Header, error) {
	data, err := s.dev.ReadBytes(s.device, offset, types.GptHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read gpt %s header at offset %d: %w", which, offset, err)
	}
	s.trace(which+" header", offset, data)

	hdr, err := gpt.DecodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode gpt %s header: %w", which, err)
	}

	if !hdr.Validate() {
		s.logger.Errorf("error validating gpt %s header", which)
		return nil, fmt.Errorf("%w: %s header at offset %d", gpt.ErrInvalidHeader, which, offset)
	}

	return hdr, nil
}

// PartitionEntry returns the entry named name, or nil if the table has none. When several
// entries share a name the last one wins.
func (s *GptStore) PartitionEntry(name string) *gpt.Entry {
	return s.byName[name]
}

// Entries returns the primary entry array in table order.
func (s *GptStore) Entries() []*gpt.Entry {
	return s.entries
}

// PrimaryHeader returns the primary header, or nil before a successful Load.
func (s *GptStore) PrimaryHeader() *gpt.Header {
	return s.primary
}

// BackupHeader returns the backup header, or nil before a successful Load.
func (s *GptStore) BackupHeader() *gpt.Header {
	return s.backup
}

// BlockSize returns the logical block size read during Load.
func (s *GptStore) BlockSize() uint32 {
	return s.blockSize
}

// Sync recomputes the entry array and header checksums and writes the changed metadata
// back to the device. Nothing is written when the primary header checksum is unchanged.
// Writes go in order: primary header, primary boot_ entries, backup boot_ entries, backup
// header. The first failed write aborts the sequence; earlier writes are not undone.
// The returned bool reports whether anything was written.
func (s *GptStore) Sync() (bool, error) {
	if !s.loaded {
		return false, ErrStoreNotLoaded
	}

	s.primary.SetEntriesCrc32(gpt.EntriesCrc32(s.entries))

	previous := s.primary.Crc32()
	s.primary.SetCrc32(s.primary.ComputeCrc32())
	if s.primary.Crc32() == previous {
		s.logger.Debug("gpt unchanged, skipping write")
		return false, nil
	}

	s.logger.Info("updating GPT")

	if err := s.write(int64(s.blockSize), s.primary.Encode(), "primary header"); err != nil {
		return true, err
	}

	if err := s.writeBootEntries(s.primary.StartLba(), s.primary.EntryCount(), "primary"); err != nil {
		return true, err
	}

	s.backup.SetEntriesCrc32(s.primary.EntriesCrc32())
	s.backup.SetCrc32(s.backup.ComputeCrc32())

	if err := s.writeBootEntries(s.backup.StartLba(), s.backup.EntryCount(), "backup"); err != nil {
		return true, err
	}

	backupOffset := int64(s.blockSize) * int64(s.primary.BackupLba())
	if err := s.write(backupOffset, s.backup.Encode(), "backup header"); err != nil {
		return true, err
	}

	return true, nil
}

// writeBootEntries writes the boot_ entries among the first count entries of the array
// starting at startLba. Entries past count do not exist in that copy of the table.
func (s *GptStore) writeBootEntries(startLba uint64, count uint32, which string) error {
	start := int64(s.blockSize) * int64(startLba)
	for i, e := range s.entries {
		if uint32(i) >= count {
			break
		}
		if !strings.HasPrefix(e.Name(), types.BootPartitionPrefix) {
			continue
		}
		offset := start + int64(i)*types.GptEntrySize
		if err := s.write(offset, e.Encode(), fmt.Sprintf("%s partition entry %s", which, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *GptStore) write(offset int64, data []byte, what string) error {
	s.trace(what, offset, data)
	if err := s.dev.WriteBytes(s.device, offset, data); err != nil {
		s.logger.WithField("offset", offset).Errorf("failed to write gpt %s", what)
		return fmt.Errorf("failed to write gpt %s at offset %d: %w", what, offset, err)
	}
	return nil
}

// CrcReport recomputes the checksums of the loaded table. The backup entry array is read
// from the device and compared against the backup header's stored checksum.
func (s *GptStore) CrcReport() (CrcReport, error) {
	if !s.loaded {
		return CrcReport{}, ErrStoreNotLoaded
	}

	report := CrcReport{
		HeaderStored:         s.primary.Crc32(),
		HeaderComputed:       s.primary.ComputeCrc32(),
		EntriesStored:        s.primary.EntriesCrc32(),
		EntriesComputed:      gpt.EntriesCrc32(s.entries),
		BackupHeaderStored:   s.backup.Crc32(),
		BackupHeaderComputed: s.backup.ComputeCrc32(),
		BackupEntriesStored:  s.backup.EntriesCrc32(),
	}

	start := int64(s.blockSize) * int64(s.backup.StartLba())
	size := int(s.backup.EntryCount()) * int(s.backup.EntrySize())
	data, err := s.dev.ReadBytes(s.device, start, size)
	if err != nil {
		return report, fmt.Errorf("failed to read gpt backup entries at offset %d: %w", start, err)
	}
	backupEntries, err := gpt.DecodeEntries(data, s.backup.EntryCount())
	if err != nil {
		return report, fmt.Errorf("failed to decode gpt backup entries: %w", err)
	}
	report.BackupEntriesMismatch = gpt.EntriesCrc32(backupEntries) != s.backup.EntriesCrc32()

	return report, nil
}

func (s *GptStore) trace(what string, offset int64, data []byte) {
	if !s.traceBytes {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"region": what,
		"offset": offset,
	}).Trace(hex.EncodeToString(data))
}
