package plantentry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// ErrStatusConflict is returned when an entry is not in the expected document status.
var ErrStatusConflict = errors.New("plant entry status changed concurrently")

// Repository persists plant entries, their lines and produced item links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.PlantEntry) error
	Get(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error)
	// GetForUpdate locks the entry row and loads its lines and items.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error)
	ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []models.PlantEntryLine) error
	AddItems(ctx context.Context, items []models.PlantEntryItem) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DocStatus, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.PlantEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error) {
	var entry models.PlantEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("idx ASC") }).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("item_key ASC") }).
		First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error) {
	conn := r.db.WithContext(ctx)
	var entry models.PlantEntry
	if err := db.ForUpdate(conn).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := conn.Where("plant_entry_id = ?", id).Order("idx ASC").Find(&entry.Lines).Error; err != nil {
		return nil, err
	}
	if err := conn.Where("plant_entry_id = ?", id).Order("item_key ASC").Find(&entry.Items).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []models.PlantEntryLine) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("plant_entry_id = ?", entryID).Delete(&models.PlantEntryLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].PlantEntryID = entryID
	}
	return conn.Create(&lines).Error
}

func (r *repository) AddItems(ctx context.Context, items []models.PlantEntryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// TransitionStatus moves doc_status from -> to and stamps the matching timestamp.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DocStatus, at time.Time) error {
	updates := map[string]any{"doc_status": to}
	switch to {
	case enums.DocStatusSubmitted:
		updates["submitted_at"] = at
	case enums.DocStatusCancelled:
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.PlantEntry{}).
		Where("id = ? AND doc_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
