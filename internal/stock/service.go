package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Movement is one stock posting against an item in a warehouse.
type Movement struct {
	ItemID        uuid.UUID
	ItemCode      string
	Warehouse     string
	Quantity      decimal.Decimal
	ReferenceType string
	ReferenceID   *uuid.UUID
}

// Service is the stock balance oracle plus the postings that feed it.
type Service interface {
	// Balance reports on-hand quantity. A nil tx reads outside any transaction.
	Balance(ctx context.Context, tx *gorm.DB, itemCode, warehouse string) (decimal.Decimal, error)
	Receive(ctx context.Context, tx *gorm.DB, movement Movement) error
	// Reverse posts whatever is needed to bring the balance back to zero and
	// returns the posted change.
	Reverse(ctx context.Context, tx *gorm.DB, movement Movement) (decimal.Decimal, error)
	// Issue consumes stock of an enabled item in its own transaction.
	Issue(ctx context.Context, movement Movement) (*models.StockLedgerEntry, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Balance(ctx context.Context, tx *gorm.DB, itemCode, warehouse string) (decimal.Decimal, error) {
	balance, err := s.repo.WithTx(tx).Balance(ctx, itemCode, warehouse)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query stock balance")
	}
	return balance, nil
}

func (s *service) Receive(ctx context.Context, tx *gorm.DB, movement Movement) error {
	if err := validateMovement(movement); err != nil {
		return err
	}
	return s.post(ctx, s.repo.WithTx(tx), enums.StockEntryReceipt, movement, movement.Quantity)
}

func (s *service) Reverse(ctx context.Context, tx *gorm.DB, movement Movement) (decimal.Decimal, error) {
	repo := s.repo.WithTx(tx)
	balance, err := repo.Balance(ctx, movement.ItemCode, movement.Warehouse)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query stock balance")
	}
	if balance.IsZero() {
		return decimal.Zero, nil
	}
	change := balance.Neg()
	if err := s.post(ctx, repo, enums.StockEntryReversal, movement, change); err != nil {
		return decimal.Zero, err
	}
	return change, nil
}

func (s *service) Issue(ctx context.Context, movement Movement) (*models.StockLedgerEntry, error) {
	if err := validateMovement(movement); err != nil {
		return nil, err
	}

	var entry *models.StockLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.LockItem(ctx, movement.ItemCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s not found", movement.ItemCode))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock item")
		}
		if item.Disabled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("item %s is disabled", item.Code))
		}

		balance, err := repo.Balance(ctx, movement.ItemCode, movement.Warehouse)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query stock balance")
		}
		if balance.LessThan(movement.Quantity) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("insufficient stock for %s in %s: have %s, need %s",
					item.Code, movement.Warehouse, balance.String(), movement.Quantity.String()))
		}

		movement.ItemID = item.ID
		row := newEntry(enums.StockEntryIssue, movement, movement.Quantity.Neg())
		if err := repo.Append(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append stock issue")
		}
		entry = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) post(ctx context.Context, repo Repository, kind enums.StockEntryType, movement Movement, change decimal.Decimal) error {
	row := newEntry(kind, movement, change)
	if err := repo.Append(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("append stock %s", kind))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_code":  movement.ItemCode,
			"warehouse":  movement.Warehouse,
			"entry_type": kind,
			"qty_change": change.String(),
		})
		s.logg.Debug(logCtx, "stock ledger entry posted")
	}
	return nil
}

func newEntry(kind enums.StockEntryType, movement Movement, change decimal.Decimal) *models.StockLedgerEntry {
	return &models.StockLedgerEntry{
		ItemID:        movement.ItemID,
		ItemCode:      movement.ItemCode,
		Warehouse:     movement.Warehouse,
		Type:          kind,
		QtyChange:     change,
		ReferenceType: movement.ReferenceType,
		ReferenceID:   movement.ReferenceID,
	}
}

func validateMovement(movement Movement) error {
	if strings.TrimSpace(movement.ItemCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item code is required")
	}
	if strings.TrimSpace(movement.Warehouse) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "warehouse is required")
	}
	if !movement.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
