package stock

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
)

// ledgerScale matches the numeric(18,3) ledger columns.
const ledgerScale = 3

// Repository persists stock ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.StockLedgerEntry) error
	Balance(ctx context.Context, itemCode, warehouse string) (decimal.Decimal, error)
	ListByItem(ctx context.Context, itemCode string) ([]models.StockLedgerEntry, error)
	LockItem(ctx context.Context, itemCode string) (*models.Item, error)
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

func (r *repository) Append(ctx context.Context, entry *models.StockLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Balance(ctx context.Context, itemCode, warehouse string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Select("COALESCE(SUM(qty_change), 0)").
		Where("item_code = ? AND warehouse = ?", itemCode, warehouse).
		Row()
	if err := row.Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance.Round(ledgerScale), nil
}

func (r *repository) ListByItem(ctx context.Context, itemCode string) ([]models.StockLedgerEntry, error) {
	var entries []models.StockLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("item_code = ?", itemCode).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) LockItem(ctx context.Context, itemCode string) (*models.Item, error) {
	var item models.Item
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&item, "code = ?", itemCode).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
