package enums

import (
	"fmt"
	"strings"
)

// PlantEntryPurpose selects the transition a plant entry applies.
// The empty value is a generic collection.
type PlantEntryPurpose string

const (
	PlantEntryPurposeCollection PlantEntryPurpose = ""
	PlantEntryPurposeHarvest    PlantEntryPurpose = "harvest"
	PlantEntryPurposeCure       PlantEntryPurpose = "cure"
	PlantEntryPurposeConvert    PlantEntryPurpose = "convert"
)

var validPlantEntryPurposes = []PlantEntryPurpose{
	PlantEntryPurposeCollection,
	PlantEntryPurposeHarvest,
	PlantEntryPurposeCure,
	PlantEntryPurposeConvert,
}

// String implements fmt.Stringer.
func (p PlantEntryPurpose) String() string {
	return string(p)
}

// Label is used for metric labels where an empty value is not useful.
func (p PlantEntryPurpose) Label() string {
	if p == PlantEntryPurposeCollection {
		return "collection"
	}
	return string(p)
}

// IsValid reports whether the value is known.
func (p PlantEntryPurpose) IsValid() bool {
	for _, candidate := range validPlantEntryPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlantEntryPurpose converts raw input into a PlantEntryPurpose. Matching is
// case-insensitive so "Harvest" and "harvest" are equivalent.
func ParsePlantEntryPurpose(value string) (PlantEntryPurpose, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPlantEntryPurposes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plant entry purpose %q", value)
}
