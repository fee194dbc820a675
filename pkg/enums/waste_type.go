package enums

import "fmt"

// WasteType classifies the contents of a collection event.
type WasteType string

const (
	WasteTypeRecyclable    WasteType = "recyclable"
	WasteTypeNonRecyclable WasteType = "non_recyclable"
)

var validWasteTypes = []WasteType{
	WasteTypeRecyclable,
	WasteTypeNonRecyclable,
}

// String implements fmt.Stringer.
func (w WasteType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WasteType.
func (w WasteType) IsValid() bool {
	for _, candidate := range validWasteTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWasteType converts raw input into a WasteType.
func ParseWasteType(value string) (WasteType, error) {
	for _, candidate := range validWasteTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid waste type %q", value)
}
