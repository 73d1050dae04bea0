package dump

import (
	"github.com/deploymenttheory/go-bootctl/internal/services"
)

// GptRequest represents a GPT dump request
type GptRequest struct {
	Device     string
	All        bool
	TraceBytes bool
}

// DevinfoRequest represents a devinfo dump request
type DevinfoRequest struct {
	Path string
}

// GptResponse represents a decoded GPT
type GptResponse struct {
	Device     string             `json:"device" yaml:"device"`
	BlockSize  uint32             `json:"block_size" yaml:"block_size"`
	Header     HeaderInfo         `json:"header" yaml:"header"`
	Checksums  services.CrcReport `json:"checksums" yaml:"checksums"`
	Consistent bool               `json:"consistent" yaml:"consistent"`
	Partitions []PartitionInfo    `json:"partitions" yaml:"partitions"`
}

// HeaderInfo represents the primary GPT header
type HeaderInfo struct {
	Revision       string `json:"revision" yaml:"revision"`
	HeaderSize     uint32 `json:"header_size" yaml:"header_size"`
	CurrentLba     uint64 `json:"current_lba" yaml:"current_lba"`
	BackupLba      uint64 `json:"backup_lba" yaml:"backup_lba"`
	FirstUsableLba uint64 `json:"first_usable_lba" yaml:"first_usable_lba"`
	LastUsableLba  uint64 `json:"last_usable_lba" yaml:"last_usable_lba"`
	DiskGUID       string `json:"disk_guid" yaml:"disk_guid"`
	StartLba       uint64 `json:"start_lba" yaml:"start_lba"`
	EntryCount     uint32 `json:"entry_count" yaml:"entry_count"`
	EntrySize      uint32 `json:"entry_size" yaml:"entry_size"`
}

// PartitionInfo represents one partition entry
type PartitionInfo struct {
	Index      int    `json:"index" yaml:"index"`
	Name       string `json:"name" yaml:"name"`
	TypeGUID   string `json:"type_guid" yaml:"type_guid"`
	GUID       string `json:"guid" yaml:"guid"`
	FirstLba   uint64 `json:"first_lba" yaml:"first_lba"`
	LastLba    uint64 `json:"last_lba" yaml:"last_lba"`
	Attributes string `json:"attributes" yaml:"attributes"`
	Active     bool   `json:"active" yaml:"active"`
	Successful bool   `json:"successful" yaml:"successful"`
	Unbootable bool   `json:"unbootable" yaml:"unbootable"`
}

// DevinfoResponse represents a decoded devinfo record
type DevinfoResponse struct {
	Path    string            `json:"path" yaml:"path"`
	Magic   string            `json:"magic" yaml:"magic"`
	Version string            `json:"version" yaml:"version"`
	Valid   bool              `json:"valid" yaml:"valid"`
	Slots   []DevinfoSlotInfo `json:"slots" yaml:"slots"`
}

// DevinfoSlotInfo represents one devinfo slot record
type DevinfoSlotInfo struct {
	Suffix     string `json:"suffix" yaml:"suffix"`
	RetryCount uint8  `json:"retry_count" yaml:"retry_count"`
	Flags      string `json:"flags" yaml:"flags"`
	Active     bool   `json:"active" yaml:"active"`
	Successful bool   `json:"successful" yaml:"successful"`
	Unbootable bool   `json:"unbootable" yaml:"unbootable"`
	FastbootOK bool   `json:"fastboot_ok" yaml:"fastboot_ok"`
}
