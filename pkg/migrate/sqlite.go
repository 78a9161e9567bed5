package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// ItemGroupSeeds are the fixed derivative classifications every database carries.
var ItemGroupSeeds = []models.ItemGroup{
	{Code: enums.ItemGroupFlower, Name: "Flower"},
	{Code: enums.ItemGroupOtherPlantMaterial, Name: "Other Plant Material"},
	{Code: enums.ItemGroupMaturePlant, Name: "Mature Plant"},
	{Code: enums.ItemGroupWaste, Name: "Waste"},
}

func schemaModels() []any {
	return []any{
		&models.Plant{},
		&models.PlantEntry{},
		&models.PlantEntryLine{},
		&models.ItemGroup{},
		&models.Item{},
		&models.PlantEntryItem{},
		&models.StockLedgerEntry{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// SyncModels builds the schema from the gorm models and seeds item groups.
// Used for SQLite deployments and tests where the Postgres SQL files do not apply.
func SyncModels(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	conn = conn.WithContext(ctx)
	if err := conn.AutoMigrate(schemaModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return SeedItemGroups(ctx, conn)
}

// SeedItemGroups inserts the fixed classifications, leaving existing rows alone.
func SeedItemGroups(ctx context.Context, conn *gorm.DB) error {
	seeds := make([]models.ItemGroup, len(ItemGroupSeeds))
	copy(seeds, ItemGroupSeeds)
	if err := conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seeds).Error; err != nil {
		return fmt.Errorf("seed item groups: %w", err)
	}
	return nil
}
