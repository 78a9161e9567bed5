package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// ItemGroup is a fixed derivative classification.
type ItemGroup struct {
	Code      enums.ItemGroupCode `gorm:"column:code;type:text;primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// Item is a trackable inventory unit derived from a plant entry.
type Item struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Code             string              `gorm:"column:code;not null;uniqueIndex"`
	Name             string              `gorm:"column:name;not null"`
	ItemGroup        enums.ItemGroupCode `gorm:"column:item_group;type:text;not null"`
	Quantity         decimal.Decimal     `gorm:"column:quantity;type:numeric(18,3);not null"`
	StockUOM         string              `gorm:"column:stock_uom;not null"`
	IsStockItem      bool                `gorm:"column:is_stock_item;not null"`
	DefaultWarehouse string              `gorm:"column:default_warehouse;not null"`
	Strain           string              `gorm:"column:strain"`
	PlantEntryID     *uuid.UUID          `gorm:"column:plant_entry_id;type:uuid;index"`
	SourcePlantID    *uuid.UUID          `gorm:"column:source_plant_id;type:uuid"`
	Disabled         bool                `gorm:"column:disabled;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
