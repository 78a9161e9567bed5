package plantentry

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// Quantities are the collected amounts recorded on an entry.
type Quantities struct {
	Flower        decimal.Decimal
	OtherMaterial decimal.Decimal
	Waste         decimal.Decimal
}

// ItemSpec describes one derivative item an entry produces.
type ItemSpec struct {
	Key           string
	Group         enums.ItemGroupCode
	Quantity      decimal.Decimal
	Strain        string
	SourcePlantID *uuid.UUID
}

// Derive returns the items produced by an entry, in creation order. Keys are
// unique: the plant code for converted plants, the item group code otherwise.
// strain is the resolved entry strain; converted plants use their line strain.
func Derive(purpose enums.PlantEntryPurpose, qty Quantities, lines []models.PlantEntryLine, strain string) []ItemSpec {
	if purpose == enums.PlantEntryPurposeConvert {
		specs := make([]ItemSpec, 0, len(lines))
		for i := range lines {
			line := lines[i]
			lineStrain := line.Strain
			if strings.TrimSpace(lineStrain) == "" {
				lineStrain = strain
			}
			plantID := line.PlantID
			specs = append(specs, ItemSpec{
				Key:           line.PlantCode,
				Group:         enums.ItemGroupMaturePlant,
				Quantity:      decimal.NewFromInt(1),
				Strain:        lineStrain,
				SourcePlantID: &plantID,
			})
		}
		return specs
	}

	var specs []ItemSpec
	if purpose == enums.PlantEntryPurposeCure {
		specs = append(specs, groupSpec(enums.ItemGroupFlower, qty.Flower, strain))
	}
	if qty.OtherMaterial.IsPositive() {
		specs = append(specs, groupSpec(enums.ItemGroupOtherPlantMaterial, qty.OtherMaterial, strain))
	}
	if qty.Waste.IsPositive() {
		specs = append(specs, groupSpec(enums.ItemGroupWaste, qty.Waste, strain))
	}
	return specs
}

func groupSpec(group enums.ItemGroupCode, qty decimal.Decimal, strain string) ItemSpec {
	return ItemSpec{
		Key:      group.String(),
		Group:    group,
		Quantity: qty,
		Strain:   strain,
	}
}

// resolveStrain prefers the entry strain, then the strain of the plant on the first line.
func resolveStrain(entry *models.PlantEntry, first *models.Plant) string {
	if s := strings.TrimSpace(entry.Strain); s != "" {
		return s
	}
	if first != nil {
		return first.Strain
	}
	return ""
}

// recordedQuantity is the amount an item of group held when its entry was committed.
func recordedQuantity(entry *models.PlantEntry, group enums.ItemGroupCode) decimal.Decimal {
	switch group {
	case enums.ItemGroupFlower:
		return entry.Flower
	case enums.ItemGroupOtherPlantMaterial:
		return entry.OtherMaterial
	case enums.ItemGroupMaturePlant:
		return decimal.NewFromInt(1)
	default:
		return entry.Waste
	}
}

func quantitiesOf(entry *models.PlantEntry) Quantities {
	return Quantities{
		Flower:        entry.Flower,
		OtherMaterial: entry.OtherMaterial,
		Waste:         entry.Waste,
	}
}
