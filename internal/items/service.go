package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/internal/stock"
	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

const defaultStockUOM = "Gram"

// Overrides replace the derived item properties when set.
type Overrides struct {
	Strain           string
	DefaultWarehouse string
	StockUOM         string
	PlantEntryID     *uuid.UUID
	SourcePlantID    *uuid.UUID
}

// CreateItemInput is one derivative item request.
type CreateItemInput struct {
	Group     enums.ItemGroupCode
	Quantity  decimal.Decimal
	Overrides Overrides
}

// Service is the item derivation boundary plus the item store.
type Service interface {
	// CreateItem creates a disabled stock item and posts its opening receipt
	// inside tx.
	CreateItem(ctx context.Context, tx *gorm.DB, input CreateItemInput) (*models.Item, error)
	GetByCode(ctx context.Context, code string) (*models.Item, error)
	// ListByPlantEntry returns items created by a plant entry. lock takes row
	// locks and is only meaningful inside tx.
	ListByPlantEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, lock bool) ([]models.Item, error)
	SetDisabled(ctx context.Context, tx *gorm.DB, items []models.Item, disabled bool) error
}

type stockReceiver interface {
	Receive(ctx context.Context, tx *gorm.DB, movement stock.Movement) error
}

type service struct {
	repo     Repository
	codes    CodeGenerator
	stock    stockReceiver
	stockUOM string
	logg     *logger.Logger
}

// ServiceParams groups the item service collaborators.
type ServiceParams struct {
	Repo     Repository
	Codes    CodeGenerator
	Stock    stockReceiver
	StockUOM string
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("item code generator required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock receiver required")
	}
	uom := strings.TrimSpace(params.StockUOM)
	if uom == "" {
		uom = defaultStockUOM
	}
	return &service{
		repo:     params.Repo,
		codes:    params.Codes,
		stock:    params.Stock,
		stockUOM: uom,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateItem(ctx context.Context, tx *gorm.DB, input CreateItemInput) (*models.Item, error) {
	if !input.Group.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown item group %q", input.Group))
	}
	if input.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must not be negative")
	}
	warehouse := strings.TrimSpace(input.Overrides.DefaultWarehouse)
	if warehouse == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default warehouse is required")
	}

	repo := s.repo.WithTx(tx)
	group, err := repo.GetGroup(ctx, input.Group)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item group %s not found", input.Group))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item group")
	}

	code, err := s.codes.Next(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate item code")
	}

	strain := strings.TrimSpace(input.Overrides.Strain)
	uom := s.stockUOM
	if input.Overrides.StockUOM != "" {
		uom = input.Overrides.StockUOM
	}

	item := &models.Item{
		Code:             code,
		Name:             strings.TrimSpace(strings.Join([]string{strain, group.Name}, " ")),
		ItemGroup:        group.Code,
		Quantity:         input.Quantity,
		StockUOM:         uom,
		IsStockItem:      true,
		DefaultWarehouse: warehouse,
		Strain:           strain,
		PlantEntryID:     input.Overrides.PlantEntryID,
		SourcePlantID:    input.Overrides.SourcePlantID,
		Disabled:         true,
	}
	if err := repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("item code %s already issued", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	// An empty collection still yields a traceable item, just without stock.
	if input.Quantity.IsPositive() {
		receipt := stock.Movement{
			ItemID:        item.ID,
			ItemCode:      item.Code,
			Warehouse:     warehouse,
			Quantity:      input.Quantity,
			ReferenceType: string(enums.AggregatePlantEntry),
			ReferenceID:   input.Overrides.PlantEntryID,
		}
		if err := s.stock.Receive(ctx, tx, receipt); err != nil {
			return nil, err
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_code":  item.Code,
			"item_group": item.ItemGroup,
			"quantity":   item.Quantity.String(),
			"warehouse":  warehouse,
		})
		s.logg.Debug(logCtx, "derivative item created")
	}
	return item, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Item, error) {
	item, err := s.repo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}

func (s *service) ListByPlantEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, lock bool) ([]models.Item, error) {
	rows, err := s.repo.WithTx(tx).ListByPlantEntry(ctx, entryID, lock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plant entry items")
	}
	return rows, nil
}

func (s *service) SetDisabled(ctx context.Context, tx *gorm.DB, items []models.Item, disabled bool) error {
	ids := make([]uuid.UUID, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	if err := s.repo.WithTx(tx).SetDisabled(ctx, ids, disabled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item activation")
	}
	for i := range items {
		items[i].Disabled = disabled
	}
	return nil
}
