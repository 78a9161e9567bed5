package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// Repository is the item store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	GetByCode(ctx context.Context, code string) (*models.Item, error)
	GetGroup(ctx context.Context, code enums.ItemGroupCode) (*models.ItemGroup, error)
	ListByPlantEntry(ctx context.Context, entryID uuid.UUID, lock bool) ([]models.Item, error)
	SetDisabled(ctx context.Context, ids []uuid.UUID, disabled bool) error
	// MaxCode returns the highest code of the given width that starts with
	// prefix, or "" when none exist.
	MaxCode(ctx context.Context, prefix string, width int) (string, error)
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

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetByCode(ctx context.Context, code string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetGroup(ctx context.Context, code enums.ItemGroupCode) (*models.ItemGroup, error) {
	var group models.ItemGroup
	if err := r.db.WithContext(ctx).First(&group, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListByPlantEntry(ctx context.Context, entryID uuid.UUID, lock bool) ([]models.Item, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = db.ForUpdate(query)
	}
	var rows []models.Item
	if err := query.
		Where("plant_entry_id = ?", entryID).
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SetDisabled(ctx context.Context, ids []uuid.UUID, disabled bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id IN ?", ids).
		Update("disabled", disabled).Error
}

func (r *repository) MaxCode(ctx context.Context, prefix string, width int) (string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("code LIKE ? AND LENGTH(code) = ?", prefix+"%", width).
		Order("code DESC").
		Limit(1).
		Pluck("code", &codes).Error
	if err != nil || len(codes) == 0 {
		return "", err
	}
	return codes[0], nil
}
