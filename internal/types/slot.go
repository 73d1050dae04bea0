package types

// SlotCount is the number of A/B slots supported.
const SlotCount = 2

// Slot suffixes as reported by ro.boot.slot_suffix.
const (
	SlotSuffixA = "_a"
	SlotSuffixB = "_b"
)

// SlotState is the derived state of one slot. It is recomputed on every refresh and
// never persisted.
type SlotState struct {
	Active     bool `json:"active" yaml:"active"`
	Successful bool `json:"successful" yaml:"successful"`
	Unbootable bool `json:"unbootable" yaml:"unbootable"`
}

// AuthorityKind identifies which metadata format governs slot state.
type AuthorityKind int

const (
	AuthorityNone AuthorityKind = iota
	AuthorityDevinfo
	AuthorityGpt
)

// String returns the authority name.
func (k AuthorityKind) String() string {
	switch k {
	case AuthorityDevinfo:
		return "devinfo"
	case AuthorityGpt:
		return "gpt"
	default:
		return "none"
	}
}

// SlotSuffix returns the suffix for slot, or an empty string when it is out of range.
func SlotSuffix(slot uint32) string {
	switch slot {
	case 0:
		return SlotSuffixA
	case 1:
		return SlotSuffixB
	default:
		return ""
	}
}

// SlotFromSuffix maps a slot suffix to its index. Anything other than "_b" is slot 0.
func SlotFromSuffix(suffix string) uint32 {
	if suffix == SlotSuffixB {
		return 1
	}
	return 0
}
