package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/api/responses"
	"github.com/angelmondragon/grovetrace/api/validators"
	"github.com/angelmondragon/grovetrace/internal/stock"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

// ItemReader resolves derived items by code.
type ItemReader interface {
	GetByCode(ctx context.Context, code string) (*models.Item, error)
}

// StockLedger is the part of the stock service the item endpoints use.
type StockLedger interface {
	Balance(ctx context.Context, tx *gorm.DB, itemCode, warehouse string) (decimal.Decimal, error)
	Issue(ctx context.Context, movement stock.Movement) (*models.StockLedgerEntry, error)
}

type ItemDTO struct {
	ID               uuid.UUID           `json:"id"`
	Code             string              `json:"code"`
	Name             string              `json:"name"`
	ItemGroup        enums.ItemGroupCode `json:"item_group"`
	Quantity         decimal.Decimal     `json:"quantity"`
	StockUOM         string              `json:"stock_uom"`
	DefaultWarehouse string              `json:"default_warehouse"`
	Strain           string              `json:"strain,omitempty"`
	PlantEntryID     *uuid.UUID          `json:"plant_entry_id,omitempty"`
	Disabled         bool                `json:"disabled"`
	Balance          decimal.Decimal     `json:"balance"`
}

type StockMovementDTO struct {
	ID            uuid.UUID            `json:"id"`
	ItemCode      string               `json:"item_code"`
	Warehouse     string               `json:"warehouse"`
	Type          enums.StockEntryType `json:"type"`
	QtyChange     decimal.Decimal      `json:"qty_change"`
	ReferenceType string               `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID           `json:"reference_id,omitempty"`
	Balance       decimal.Decimal      `json:"balance"`
	CreatedAt     time.Time            `json:"created_at"`
}

type issueStockRequest struct {
	Warehouse     string          `json:"warehouse" validate:"max=140"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	ReferenceType string          `json:"reference_type" validate:"max=64"`
	ReferenceID   *uuid.UUID      `json:"reference_id"`
}

// ItemGet returns a derived item with its balance in the default warehouse.
func ItemGet(items ItemReader, ledger StockLedger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if items == nil || ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}
		item, err := loadItem(r, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := ledger.Balance(r.Context(), nil, item.Code, item.DefaultWarehouse)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ItemDTO{
			ID:               item.ID,
			Code:             item.Code,
			Name:             item.Name,
			ItemGroup:        item.ItemGroup,
			Quantity:         item.Quantity,
			StockUOM:         item.StockUOM,
			DefaultWarehouse: item.DefaultWarehouse,
			Strain:           item.Strain,
			PlantEntryID:     item.PlantEntryID,
			Disabled:         item.Disabled,
			Balance:          balance,
		})
	}
}

// ItemIssue consumes stock of a derived item. Once any of an entry's items
// has been issued, the entry can no longer be cancelled.
func ItemIssue(items ItemReader, ledger StockLedger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if items == nil || ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}
		item, err := loadItem(r, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload issueStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouse := validators.SanitizeString(payload.Warehouse, 140)
		if warehouse == "" {
			warehouse = item.DefaultWarehouse
		}

		entry, err := ledger.Issue(r.Context(), stock.Movement{
			ItemCode:      item.Code,
			Warehouse:     warehouse,
			Quantity:      payload.Quantity,
			ReferenceType: validators.SanitizeString(payload.ReferenceType, 64),
			ReferenceID:   payload.ReferenceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := ledger.Balance(r.Context(), nil, item.Code, warehouse)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, StockMovementDTO{
			ID:            entry.ID,
			ItemCode:      entry.ItemCode,
			Warehouse:     entry.Warehouse,
			Type:          entry.Type,
			QtyChange:     entry.QtyChange,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
			Balance:       balance,
			CreatedAt:     entry.CreatedAt,
		})
	}
}

func loadItem(r *http.Request, items ItemReader) (*models.Item, error) {
	code := strings.TrimSpace(chi.URLParam(r, "itemCode"))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item code is required")
	}
	return items.GetByCode(r.Context(), code)
}
