package plantentry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

func qty(flower, other, waste string) Quantities {
	return Quantities{
		Flower:        decimal.RequireFromString(flower),
		OtherMaterial: decimal.RequireFromString(other),
		Waste:         decimal.RequireFromString(waste),
	}
}

func TestDerive(t *testing.T) {
	lines := []models.PlantEntryLine{
		{PlantID: uuid.New(), PlantCode: "P-1", Strain: "A"},
		{PlantID: uuid.New(), PlantCode: "P-2", Strain: "B"},
	}

	cases := []struct {
		name    string
		purpose enums.PlantEntryPurpose
		qty     Quantities
		want    []ItemSpec
	}{
		{
			name:    "harvest with other material and waste",
			purpose: enums.PlantEntryPurposeHarvest,
			qty:     qty("0", "5", "2"),
			want: []ItemSpec{
				{Key: "9", Group: enums.ItemGroupOtherPlantMaterial, Quantity: decimal.NewFromInt(5), Strain: "OG"},
				{Key: "27", Group: enums.ItemGroupWaste, Quantity: decimal.NewFromInt(2), Strain: "OG"},
			},
		},
		{
			name:    "harvest ignores flower",
			purpose: enums.PlantEntryPurposeHarvest,
			qty:     qty("3", "0", "0"),
			want:    nil,
		},
		{
			name:    "cure yields flower first",
			purpose: enums.PlantEntryPurposeCure,
			qty:     qty("12.5", "0", "1"),
			want: []ItemSpec{
				{Key: "6", Group: enums.ItemGroupFlower, Quantity: decimal.RequireFromString("12.5"), Strain: "OG"},
				{Key: "27", Group: enums.ItemGroupWaste, Quantity: decimal.NewFromInt(1), Strain: "OG"},
			},
		},
		{
			name:    "collection behaves like harvest",
			purpose: enums.PlantEntryPurposeCollection,
			qty:     qty("0", "0.25", "0"),
			want: []ItemSpec{
				{Key: "9", Group: enums.ItemGroupOtherPlantMaterial, Quantity: decimal.RequireFromString("0.25"), Strain: "OG"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.purpose, tc.qty, lines, "OG")
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.Equal(t, tc.want[i].Key, got[i].Key)
				assert.Equal(t, tc.want[i].Group, got[i].Group)
				assert.True(t, tc.want[i].Quantity.Equal(got[i].Quantity), "quantity %s", got[i].Quantity)
				assert.Equal(t, tc.want[i].Strain, got[i].Strain)
				assert.Nil(t, got[i].SourcePlantID)
			}
		})
	}
}

func TestDeriveConvertUsesLineStrains(t *testing.T) {
	lines := []models.PlantEntryLine{
		{PlantID: uuid.New(), PlantCode: "P-1", Strain: "A"},
		{PlantID: uuid.New(), PlantCode: "P-2", Strain: "B"},
		{PlantID: uuid.New(), PlantCode: "P-3"},
	}

	got := Derive(enums.PlantEntryPurposeConvert, qty("9", "9", "9"), lines, "Fallback")
	require.Len(t, got, 3)
	for i, spec := range got {
		assert.Equal(t, lines[i].PlantCode, spec.Key)
		assert.Equal(t, enums.ItemGroupMaturePlant, spec.Group)
		assert.True(t, spec.Quantity.Equal(decimal.NewFromInt(1)))
		require.NotNil(t, spec.SourcePlantID)
		assert.Equal(t, lines[i].PlantID, *spec.SourcePlantID)
	}
	assert.Equal(t, "A", got[0].Strain)
	assert.Equal(t, "B", got[1].Strain)
	assert.Equal(t, "Fallback", got[2].Strain)
}

func TestResolveStrain(t *testing.T) {
	first := &models.Plant{Strain: "Blue Dream"}
	assert.Equal(t, "OG Kush", resolveStrain(&models.PlantEntry{Strain: " OG Kush "}, first))
	assert.Equal(t, "Blue Dream", resolveStrain(&models.PlantEntry{}, first))
	assert.Equal(t, "", resolveStrain(&models.PlantEntry{}, nil))
}

func TestRecordedQuantity(t *testing.T) {
	entry := &models.PlantEntry{
		Flower:        decimal.NewFromInt(10),
		OtherMaterial: decimal.NewFromInt(5),
		Waste:         decimal.NewFromInt(2),
	}
	assert.True(t, recordedQuantity(entry, enums.ItemGroupFlower).Equal(decimal.NewFromInt(10)))
	assert.True(t, recordedQuantity(entry, enums.ItemGroupOtherPlantMaterial).Equal(decimal.NewFromInt(5)))
	assert.True(t, recordedQuantity(entry, enums.ItemGroupWaste).Equal(decimal.NewFromInt(2)))
	assert.True(t, recordedQuantity(entry, enums.ItemGroupMaturePlant).Equal(decimal.NewFromInt(1)))
}
