package enums

import "fmt"

// ItemGroupCode is the fixed classification code of a derivative item group.
// Codes match the state traceability system inventory type ids.
type ItemGroupCode string

const (
	ItemGroupFlower             ItemGroupCode = "6"
	ItemGroupOtherPlantMaterial ItemGroupCode = "9"
	ItemGroupMaturePlant        ItemGroupCode = "12"
	ItemGroupWaste              ItemGroupCode = "27"
)

var validItemGroupCodes = []ItemGroupCode{
	ItemGroupFlower,
	ItemGroupOtherPlantMaterial,
	ItemGroupMaturePlant,
	ItemGroupWaste,
}

func (c ItemGroupCode) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ItemGroupCode) IsValid() bool {
	for _, candidate := range validItemGroupCodes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemGroupCode converts raw input into an ItemGroupCode.
func ParseItemGroupCode(value string) (ItemGroupCode, error) {
	for _, candidate := range validItemGroupCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item group code %q", value)
}
