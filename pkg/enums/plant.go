package enums

import "fmt"

// PlantState is the cultivation lifecycle state of a plant.
type PlantState string

const (
	PlantStateGrowing   PlantState = "growing"
	PlantStateDrying    PlantState = "drying"
	PlantStateCured     PlantState = "cured"
	PlantStateDestroyed PlantState = "destroyed"
	PlantStateConverted PlantState = "converted"
)

var validPlantStates = []PlantState{
	PlantStateGrowing,
	PlantStateDrying,
	PlantStateCured,
	PlantStateDestroyed,
	PlantStateConverted,
}

// String implements fmt.Stringer.
func (s PlantState) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PlantState) IsValid() bool {
	for _, candidate := range validPlantStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePlantState converts raw input into a PlantState.
func ParsePlantState(value string) (PlantState, error) {
	for _, candidate := range validPlantStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plant state %q", value)
}

// DocStatus is the document lifecycle shared by plants and plant entries.
type DocStatus string

const (
	DocStatusDraft     DocStatus = "draft"
	DocStatusSubmitted DocStatus = "submitted"
	DocStatusCancelled DocStatus = "cancelled"
)

var validDocStatuses = []DocStatus{
	DocStatusDraft,
	DocStatusSubmitted,
	DocStatusCancelled,
}

func (d DocStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is known.
func (d DocStatus) IsValid() bool {
	for _, candidate := range validDocStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocStatus converts raw input into a DocStatus.
func ParseDocStatus(value string) (DocStatus, error) {
	for _, candidate := range validDocStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid doc status %q", value)
}
