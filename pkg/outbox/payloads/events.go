package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// ItemRef describes one derivative item produced by a plant entry.
type ItemRef struct {
	Key       string              `json:"key"`
	ItemID    uuid.UUID           `json:"item_id"`
	ItemCode  string              `json:"item_code"`
	ItemGroup enums.ItemGroupCode `json:"item_group"`
	Quantity  decimal.Decimal     `json:"quantity"`
	Strain    string              `json:"strain"`
}

// PlantEntrySubmittedEvent is emitted once a plant entry commit finishes.
type PlantEntrySubmittedEvent struct {
	PlantEntryID          uuid.UUID               `json:"plant_entry_id"`
	Purpose               enums.PlantEntryPurpose `json:"purpose"`
	TargetWarehouse       string                  `json:"target_warehouse"`
	AdditionalCollections bool                    `json:"additional_collections"`
	PlantIDs              []uuid.UUID             `json:"plant_ids"`
	Items                 []ItemRef               `json:"items"`
	SubmittedAt           time.Time               `json:"submitted_at"`
}

// PlantEntryCancelledEvent is emitted once a plant entry reversal finishes.
type PlantEntryCancelledEvent struct {
	PlantEntryID     uuid.UUID               `json:"plant_entry_id"`
	Purpose          enums.PlantEntryPurpose `json:"purpose"`
	RevertedPlantIDs []uuid.UUID             `json:"reverted_plant_ids"`
	SkippedPlantIDs  []uuid.UUID             `json:"skipped_plant_ids,omitempty"`
	DisabledItemIDs  []uuid.UUID             `json:"disabled_item_ids"`
	CancelledAt      time.Time               `json:"cancelled_at"`
}

// PlantAction names the registry action behind a PlantUpdatedEvent.
type PlantAction string

const (
	PlantActionSubmitted            PlantAction = "submitted"
	PlantActionHarvestScheduled     PlantAction = "harvest_scheduled"
	PlantActionDestructionScheduled PlantAction = "destruction_scheduled"
)

// PlantUpdatedEvent is emitted when a registry action changes a plant outside
// a plant entry.
type PlantUpdatedEvent struct {
	PlantID             uuid.UUID        `json:"plant_id"`
	PlantCode           string           `json:"plant_code"`
	Action              PlantAction      `json:"action"`
	State               enums.PlantState `json:"state"`
	DocStatus           enums.DocStatus  `json:"doc_status"`
	HarvestScheduled    bool             `json:"harvest_scheduled"`
	HarvestScheduleTime *time.Time       `json:"harvest_schedule_time,omitempty"`
	DestroyScheduled    bool             `json:"destroy_scheduled"`
	UpdatedAt           time.Time        `json:"updated_at"`
}
