package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// PlantEntry is one batch lifecycle transaction over a set of plants.
type PlantEntry struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Purpose               enums.PlantEntryPurpose `gorm:"column:purpose;type:text;not null"`
	Strain                string                  `gorm:"column:strain"`
	FromPlantRoom         string                  `gorm:"column:from_plant_room"`
	TargetWarehouse       string                  `gorm:"column:target_warehouse;not null"`
	Flower                decimal.Decimal         `gorm:"column:flower;type:numeric(18,3);not null"`
	OtherMaterial         decimal.Decimal         `gorm:"column:other_material;type:numeric(18,3);not null"`
	Waste                 decimal.Decimal         `gorm:"column:waste;type:numeric(18,3);not null"`
	AdditionalCollections bool                    `gorm:"column:additional_collections;not null"`
	DocStatus             enums.DocStatus         `gorm:"column:doc_status;type:doc_status_enum;not null"`
	SubmittedAt           *time.Time              `gorm:"column:submitted_at"`
	CancelledAt           *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time               `gorm:"column:updated_at;autoUpdateTime"`

	Lines []PlantEntryLine `gorm:"foreignKey:PlantEntryID"`
	Items []PlantEntryItem `gorm:"foreignKey:PlantEntryID"`
}

func (e *PlantEntry) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// PlantEntryLine snapshots a selected plant at line population time.
type PlantEntryLine struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PlantEntryID uuid.UUID `gorm:"column:plant_entry_id;type:uuid;not null;index"`
	Idx          int       `gorm:"column:idx;not null"`
	PlantID      uuid.UUID `gorm:"column:plant_id;type:uuid;not null"`
	PlantCode    string    `gorm:"column:plant_code;not null"`
	Strain       string    `gorm:"column:strain"`
	UOM          string    `gorm:"column:uom;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (l *PlantEntryLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// PlantEntryItem maps an output key of an entry to the item it produced.
type PlantEntryItem struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PlantEntryID uuid.UUID           `gorm:"column:plant_entry_id;type:uuid;not null;index"`
	ItemKey      string              `gorm:"column:item_key;not null"`
	ItemID       uuid.UUID           `gorm:"column:item_id;type:uuid;not null"`
	ItemCode     string              `gorm:"column:item_code;not null"`
	ItemGroup    enums.ItemGroupCode `gorm:"column:item_group;type:text;not null"`
	Quantity     decimal.Decimal     `gorm:"column:quantity;type:numeric(18,3);not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (i *PlantEntryItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
