package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// Plant is a tracked cultivation unit.
type Plant struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code                string           `gorm:"column:code;not null;uniqueIndex"`
	Strain              string           `gorm:"column:strain;not null"`
	Room                string           `gorm:"column:room"`
	State               enums.PlantState `gorm:"column:state;type:plant_state_enum;not null"`
	DocStatus           enums.DocStatus  `gorm:"column:doc_status;type:doc_status_enum;not null"`
	Disabled            bool             `gorm:"column:disabled;not null"`
	HarvestScheduled    bool             `gorm:"column:harvest_scheduled;not null"`
	HarvestScheduleTime *time.Time       `gorm:"column:harvest_schedule_time"`
	HarvestCollect      int              `gorm:"column:harvest_collect;not null"`
	CureCollect         int              `gorm:"column:cure_collect;not null"`
	DestroyScheduled    bool             `gorm:"column:destroy_scheduled;not null"`
	Version             int              `gorm:"column:version;not null"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Plant) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// IsActive reports whether the plant is confirmed and not disabled.
func (p Plant) IsActive() bool {
	return p.DocStatus == enums.DocStatusSubmitted && !p.Disabled
}
