package plants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

var (
	// ErrVersionConflict is returned when a plant changed between read and save.
	ErrVersionConflict = errors.New("plant was modified concurrently")
	// ErrSubmittedPlantImmutable is returned when a non-privileged save touches
	// fields that are frozen once a plant is confirmed.
	ErrSubmittedPlantImmutable = errors.New("submitted plant fields cannot be edited")
)

// ListFilter narrows plant lookups. Nil pointers and empty strings are ignored.
type ListFilter struct {
	Disabled         *bool
	Strain           string
	Room             string
	HarvestScheduled *bool
	State            enums.PlantState
	DocStatus        enums.DocStatus
}

// SaveOptions controls the post-confirmation edit guard.
type SaveOptions struct {
	// BypassSubmitGuard lets lifecycle transitions rewrite fields of a
	// confirmed plant. Only plant entry commit and reversal set it.
	BypassSubmitGuard bool
}

// Repository is the plant registry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plant *models.Plant) error
	Get(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	List(ctx context.Context, filter ListFilter) ([]models.Plant, error)
	Save(ctx context.Context, plant *models.Plant, opts SaveOptions) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plant repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, plant *models.Plant) error {
	return r.db.WithContext(ctx).Create(plant).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	var plant models.Plant
	if err := r.db.WithContext(ctx).First(&plant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plant, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	var plant models.Plant
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&plant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plant, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Plant, error) {
	query := r.db.WithContext(ctx).Model(&models.Plant{})
	if filter.Disabled != nil {
		query = query.Where("disabled = ?", *filter.Disabled)
	}
	if filter.Strain != "" {
		query = query.Where("strain = ?", filter.Strain)
	}
	if filter.Room != "" {
		query = query.Where("room = ?", filter.Room)
	}
	if filter.HarvestScheduled != nil {
		query = query.Where("harvest_scheduled = ?", *filter.HarvestScheduled)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.DocStatus != "" {
		query = query.Where("doc_status = ?", filter.DocStatus)
	}

	var plants []models.Plant
	if err := query.Order("code ASC").Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

// Save writes the mutable columns with a compare-and-swap on version. On success
// plant.Version is advanced to the stored value.
func (r *repository) Save(ctx context.Context, plant *models.Plant, opts SaveOptions) error {
	if plant == nil || plant.ID == uuid.Nil {
		return errors.New("plant id is required")
	}
	conn := r.db.WithContext(ctx)

	if !opts.BypassSubmitGuard {
		var stored models.Plant
		if err := conn.First(&stored, "id = ?", plant.ID).Error; err != nil {
			return err
		}
		if stored.DocStatus != enums.DocStatusDraft && frozenFieldsChanged(stored, *plant) {
			return ErrSubmittedPlantImmutable
		}
	}

	res := conn.Model(&models.Plant{}).
		Where("id = ? AND version = ?", plant.ID, plant.Version).
		Updates(map[string]any{
			"strain":                plant.Strain,
			"room":                  plant.Room,
			"state":                 plant.State,
			"doc_status":            plant.DocStatus,
			"disabled":              plant.Disabled,
			"harvest_scheduled":     plant.HarvestScheduled,
			"harvest_schedule_time": plant.HarvestScheduleTime,
			"harvest_collect":       plant.HarvestCollect,
			"cure_collect":          plant.CureCollect,
			"destroy_scheduled":     plant.DestroyScheduled,
			"version":               plant.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	plant.Version++
	return nil
}

// frozenFieldsChanged reports whether next differs from stored outside the
// scheduling flags that stay editable after confirmation.
func frozenFieldsChanged(stored, next models.Plant) bool {
	return stored.Strain != next.Strain ||
		stored.Room != next.Room ||
		stored.State != next.State ||
		stored.DocStatus != next.DocStatus ||
		stored.Disabled != next.Disabled ||
		stored.HarvestCollect != next.HarvestCollect ||
		stored.CureCollect != next.CureCollect
}
