package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/enums"
)

// StockLedgerEntry is an append-only stock movement; balances are sums of QtyChange.
type StockLedgerEntry struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ItemID        uuid.UUID            `gorm:"column:item_id;type:uuid;not null"`
	ItemCode      string               `gorm:"column:item_code;not null;index:idx_stock_ledger_item_wh"`
	Warehouse     string               `gorm:"column:warehouse;not null;index:idx_stock_ledger_item_wh"`
	Type          enums.StockEntryType `gorm:"column:type;type:stock_entry_type_enum;not null"`
	QtyChange     decimal.Decimal      `gorm:"column:qty_change;type:numeric(18,3);not null"`
	ReferenceType string               `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID           `gorm:"column:reference_id;type:uuid"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (e *StockLedgerEntry) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
