package enums

import "fmt"

// CollectionStatus records the outcome a worker reported for a pickup.
type CollectionStatus string

const (
	CollectionStatusCollected    CollectionStatus = "collected"
	CollectionStatusPartial      CollectionStatus = "partial"
	CollectionStatusNotCollected CollectionStatus = "not_collected"
)

var validCollectionStatuses = []CollectionStatus{
	CollectionStatusCollected,
	CollectionStatusPartial,
	CollectionStatusNotCollected,
}

// String implements fmt.Stringer.
func (c CollectionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CollectionStatus.
func (c CollectionStatus) IsValid() bool {
	for _, candidate := range validCollectionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollectionStatus converts raw input into a CollectionStatus.
func ParseCollectionStatus(value string) (CollectionStatus, error) {
	for _, candidate := range validCollectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection status %q", value)
}

// BinStatus returns the bin state implied by the reported outcome.
func (c CollectionStatus) BinStatus() BinStatus {
	switch c {
	case CollectionStatusCollected:
		return BinStatusEmptied
	case CollectionStatusPartial:
		return BinStatusPartial
	default:
		return BinStatusNotCollected
	}
}
