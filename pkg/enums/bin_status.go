package enums

import "fmt"

// BinStatus tracks the servicing state of a waste bin.
type BinStatus string

const (
	BinStatusPending      BinStatus = "pending"
	BinStatusEmptied      BinStatus = "emptied"
	BinStatusPartial      BinStatus = "partial"
	BinStatusNotCollected BinStatus = "not_collected"
)

var validBinStatuses = []BinStatus{
	BinStatusPending,
	BinStatusEmptied,
	BinStatusPartial,
	BinStatusNotCollected,
}

// String implements fmt.Stringer.
func (b BinStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BinStatus.
func (b BinStatus) IsValid() bool {
	for _, candidate := range validBinStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBinStatus converts raw input into a BinStatus.
func ParseBinStatus(value string) (BinStatus, error) {
	for _, candidate := range validBinStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bin status %q", value)
}
