package plantentry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/internal/items"
	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/internal/stock"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
	"github.com/angelmondragon/grovetrace/pkg/metrics"
	"github.com/angelmondragon/grovetrace/pkg/outbox"
	"github.com/angelmondragon/grovetrace/pkg/outbox/payloads"
)

const lineUOM = "Gram"

const notReversibleMessage = "This document is no longer in a state where it can be canceled"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockOracle interface {
	Balance(ctx context.Context, tx *gorm.DB, itemCode, warehouse string) (decimal.Decimal, error)
	Reverse(ctx context.Context, tx *gorm.DB, movement stock.Movement) (decimal.Decimal, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DraftInput describes a new plant entry. PlantIDs is optional; lines can be
// populated later from the selection filters.
type DraftInput struct {
	Purpose               enums.PlantEntryPurpose
	Strain                string
	FromPlantRoom         string
	TargetWarehouse       string
	Flower                decimal.Decimal
	OtherMaterial         decimal.Decimal
	Waste                 decimal.Decimal
	AdditionalCollections bool
	PlantIDs              []uuid.UUID
}

// ActionInput identifies the entry a submit or cancel acts on.
type ActionInput struct {
	PlantEntryID uuid.UUID
	RequestID    string
}

// Service drives the plant entry lifecycle.
type Service interface {
	CreateDraft(ctx context.Context, input DraftInput) (*models.PlantEntry, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error)
	// PopulateLines replaces the draft lines with the plants matching the entry filters.
	PopulateLines(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error)
	// Submit validates every line, derives the output items and transitions the plants.
	Submit(ctx context.Context, input ActionInput) (*models.PlantEntry, error)
	// Cancel reverts a submitted entry unless its items were consumed downstream.
	Cancel(ctx context.Context, input ActionInput) (*models.PlantEntry, error)
}

// ServiceParams groups the plant entry collaborators.
type ServiceParams struct {
	Repo    Repository
	Plants  plants.Repository
	Items   items.Service
	Stock   stockOracle
	Outbox  outboxEmitter
	Tx      txRunner
	Metrics *metrics.PlantEntryMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	plants  plants.Repository
	items   items.Service
	stock   stockOracle
	outbox  outboxEmitter
	tx      txRunner
	metrics *metrics.PlantEntryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("plant entry repository required")
	case params.Plants == nil:
		return nil, fmt.Errorf("plant repository required")
	case params.Items == nil:
		return nil, fmt.Errorf("item service required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock oracle required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		plants:  params.Plants,
		items:   params.Items,
		stock:   params.Stock,
		outbox:  params.Outbox,
		tx:      params.Tx,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) CreateDraft(ctx context.Context, input DraftInput) (*models.PlantEntry, error) {
	entry := &models.PlantEntry{
		Purpose:               input.Purpose,
		Strain:                strings.TrimSpace(input.Strain),
		FromPlantRoom:         strings.TrimSpace(input.FromPlantRoom),
		TargetWarehouse:       strings.TrimSpace(input.TargetWarehouse),
		Flower:                input.Flower,
		OtherMaterial:         input.OtherMaterial,
		Waste:                 input.Waste,
		AdditionalCollections: input.AdditionalCollections,
		DocStatus:             enums.DocStatusDraft,
	}
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(input.PlantIDs))
	for i, id := range input.PlantIDs {
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plant %s is listed more than once", id))
		}
		seen[id] = struct{}{}
		plant, err := s.plants.Get(ctx, id)
		if err != nil {
			return nil, mapPlantLoadError(err, id.String())
		}
		entry.Lines = append(entry.Lines, lineFor(i, plant))
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plant entry")
	}
	return s.Get(ctx, entry.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapEntryLoadError(err)
	}
	return entry, nil
}

func (s *service) PopulateLines(ctx context.Context, id uuid.UUID) (*models.PlantEntry, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return mapEntryLoadError(err)
		}
		if entry.DocStatus != enums.DocStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "plant entry lines can only be populated on a draft")
		}
		t, err := transitionFor(entry.Purpose)
		if err != nil {
			return err
		}

		filter := plants.ListFilter{
			Disabled: boolPtr(false),
			Strain:   entry.Strain,
			Room:     entry.FromPlantRoom,
		}
		t.selection(&filter)
		matches, err := s.plants.WithTx(tx).List(ctx, filter)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plants")
		}

		lines := make([]models.PlantEntryLine, 0, len(matches))
		for i := range matches {
			lines = append(lines, lineFor(i, &matches[i]))
		}
		if err := repo.ReplaceLines(ctx, entry.ID, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace plant entry lines")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Submit(ctx context.Context, input ActionInput) (*models.PlantEntry, error) {
	started := s.now()
	purpose := ""
	var event payloads.PlantEntrySubmittedEvent

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		registry := s.plants.WithTx(tx)

		entry, err := repo.GetForUpdate(ctx, input.PlantEntryID)
		if err != nil {
			return mapEntryLoadError(err)
		}
		purpose = entry.Purpose.Label()
		if entry.DocStatus != enums.DocStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft plant entries can be submitted")
		}
		if err := validateEntry(entry); err != nil {
			return err
		}
		if len(entry.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "plant entry has no plants")
		}
		t, err := transitionFor(entry.Purpose)
		if err != nil {
			return err
		}

		locked, err := lockPlants(ctx, registry, entry.Lines)
		if err != nil {
			return err
		}
		for _, line := range entry.Lines {
			plant := locked[line.PlantID]
			if err := validateActive(plant); err != nil {
				return err
			}
			if err := t.validate(plant); err != nil {
				return err
			}
		}

		strain := resolveStrain(entry, locked[entry.Lines[0].PlantID])
		specs := Derive(entry.Purpose, quantitiesOf(entry), entry.Lines, strain)
		created := make([]models.Item, 0, len(specs))
		links := make([]models.PlantEntryItem, 0, len(specs))
		refs := make([]payloads.ItemRef, 0, len(specs))
		for _, spec := range specs {
			item, err := s.items.CreateItem(ctx, tx, items.CreateItemInput{
				Group:    spec.Group,
				Quantity: spec.Quantity,
				Overrides: items.Overrides{
					Strain:           spec.Strain,
					DefaultWarehouse: entry.TargetWarehouse,
					PlantEntryID:     &entry.ID,
					SourcePlantID:    spec.SourcePlantID,
				},
			})
			if err != nil {
				return err
			}
			created = append(created, *item)
			links = append(links, models.PlantEntryItem{
				PlantEntryID: entry.ID,
				ItemKey:      spec.Key,
				ItemID:       item.ID,
				ItemCode:     item.Code,
				ItemGroup:    item.ItemGroup,
				Quantity:     item.Quantity,
			})
			refs = append(refs, payloads.ItemRef{
				Key:       spec.Key,
				ItemID:    item.ID,
				ItemCode:  item.Code,
				ItemGroup: item.ItemGroup,
				Quantity:  item.Quantity,
				Strain:    item.Strain,
			})
		}
		if err := repo.AddItems(ctx, links); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record plant entry items")
		}

		plantIDs := make([]uuid.UUID, 0, len(entry.Lines))
		for _, line := range entry.Lines {
			plant := locked[line.PlantID]
			t.apply(entry, plant)
			if err := registry.Save(ctx, plant, plants.SaveOptions{BypassSubmitGuard: true}); err != nil {
				return plants.MapSaveError(err)
			}
			plantIDs = append(plantIDs, plant.ID)
		}

		// Items become visible only after every plant write succeeded.
		if err := s.items.SetDisabled(ctx, tx, created, false); err != nil {
			return err
		}

		at := s.now().UTC()
		if err := repo.TransitionStatus(ctx, entry.ID, enums.DocStatusDraft, enums.DocStatusSubmitted, at); err != nil {
			return mapStatusError(err)
		}

		event = payloads.PlantEntrySubmittedEvent{
			PlantEntryID:          entry.ID,
			Purpose:               entry.Purpose,
			TargetWarehouse:       entry.TargetWarehouse,
			AdditionalCollections: entry.AdditionalCollections,
			PlantIDs:              plantIDs,
			Items:                 refs,
			SubmittedAt:           at,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPlantEntrySubmitted,
			AggregateType: enums.AggregatePlantEntry,
			AggregateID:   entry.ID,
			RequestID:     input.RequestID,
			Data:          event,
			OccurredAt:    at,
		})
	})
	s.record(ctx, metrics.OperationSubmit, input.PlantEntryID, purpose, started, err)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithPlantEntryID(ctx, input.PlantEntryID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"purpose":    purpose,
			"line_count": len(event.PlantIDs),
			"item_count": len(event.Items),
		})
		s.logg.Info(logCtx, "plant_entry.submitted")
	}
	return s.Get(ctx, input.PlantEntryID)
}

func (s *service) Cancel(ctx context.Context, input ActionInput) (*models.PlantEntry, error) {
	started := s.now()
	purpose := ""
	var event payloads.PlantEntryCancelledEvent

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		registry := s.plants.WithTx(tx)

		entry, err := repo.GetForUpdate(ctx, input.PlantEntryID)
		if err != nil {
			return mapEntryLoadError(err)
		}
		purpose = entry.Purpose.Label()
		if entry.DocStatus != enums.DocStatusSubmitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only submitted plant entries can be cancelled")
		}
		t, err := transitionFor(entry.Purpose)
		if err != nil {
			return err
		}

		derived, err := s.items.ListByPlantEntry(ctx, tx, entry.ID, true)
		if err != nil {
			return err
		}
		for _, item := range derived {
			balance, err := s.stock.Balance(ctx, tx, item.Code, entry.TargetWarehouse)
			if err != nil {
				return err
			}
			recorded := recordedQuantity(entry, item.ItemGroup)
			if !balance.Equal(recorded) {
				return pkgerrors.New(pkgerrors.CodeTransactionNoLongerReversible, notReversibleMessage).
					WithDetails(map[string]any{
						"item_code": item.Code,
						"recorded":  recorded.String(),
						"balance":   balance.String(),
					})
			}
		}

		if err := s.items.SetDisabled(ctx, tx, derived, true); err != nil {
			return err
		}
		disabledIDs := make([]uuid.UUID, 0, len(derived))
		for _, item := range derived {
			entryID := entry.ID
			if _, err := s.stock.Reverse(ctx, tx, stock.Movement{
				ItemID:        item.ID,
				ItemCode:      item.Code,
				Warehouse:     entry.TargetWarehouse,
				ReferenceType: string(enums.AggregatePlantEntry),
				ReferenceID:   &entryID,
			}); err != nil {
				return err
			}
			disabledIDs = append(disabledIDs, item.ID)
		}

		locked, err := lockPlants(ctx, registry, entry.Lines)
		if err != nil {
			return err
		}
		reverted := make([]uuid.UUID, 0, len(entry.Lines))
		var skipped []uuid.UUID
		for _, line := range entry.Lines {
			plant := locked[line.PlantID]
			if plant.DocStatus != enums.DocStatusSubmitted {
				skipped = append(skipped, plant.ID)
				continue
			}
			t.revert(entry, plant)
			plant.Disabled = false
			if err := registry.Save(ctx, plant, plants.SaveOptions{BypassSubmitGuard: true}); err != nil {
				return plants.MapSaveError(err)
			}
			reverted = append(reverted, plant.ID)
		}

		at := s.now().UTC()
		if err := repo.TransitionStatus(ctx, entry.ID, enums.DocStatusSubmitted, enums.DocStatusCancelled, at); err != nil {
			return mapStatusError(err)
		}

		event = payloads.PlantEntryCancelledEvent{
			PlantEntryID:     entry.ID,
			Purpose:          entry.Purpose,
			RevertedPlantIDs: reverted,
			SkippedPlantIDs:  skipped,
			DisabledItemIDs:  disabledIDs,
			CancelledAt:      at,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPlantEntryCancelled,
			AggregateType: enums.AggregatePlantEntry,
			AggregateID:   entry.ID,
			RequestID:     input.RequestID,
			Data:          event,
			OccurredAt:    at,
		})
	})
	s.record(ctx, metrics.OperationCancel, input.PlantEntryID, purpose, started, err)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithPlantEntryID(ctx, input.PlantEntryID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"purpose":        purpose,
			"reverted_count": len(event.RevertedPlantIDs),
			"skipped_count":  len(event.SkippedPlantIDs),
			"item_count":     len(event.DisabledItemIDs),
		})
		s.logg.Info(logCtx, "plant_entry.cancelled")
	}
	return s.Get(ctx, input.PlantEntryID)
}

func (s *service) record(ctx context.Context, operation string, entryID uuid.UUID, purpose string, started time.Time, err error) {
	outcome := outcomeOf(err)
	s.metrics.Observe(operation, purpose, outcome, s.now().Sub(started))
	if err == nil || s.logg == nil {
		return
	}
	logCtx := s.logg.WithPlantEntryID(ctx, entryID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"operation": operation,
		"purpose":   purpose,
	})
	if outcome == metrics.OutcomeRejected {
		logCtx = s.logg.WithField(logCtx, "error_code", pkgerrors.As(err).Code())
		s.logg.Warn(logCtx, fmt.Sprintf("plant_entry.%s rejected: %s", operation, err.Error()))
		return
	}
	s.logg.Error(logCtx, fmt.Sprintf("plant_entry.%s failed", operation), err)
}

// lockPlants row-locks every plant referenced by lines in id order.
func lockPlants(ctx context.Context, registry plants.Repository, lines []models.PlantEntryLine) (map[uuid.UUID]*models.Plant, error) {
	ordered := make([]models.PlantEntryLine, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].PlantID[:], ordered[j].PlantID[:]) < 0
	})

	locked := make(map[uuid.UUID]*models.Plant, len(ordered))
	for _, line := range ordered {
		if _, dup := locked[line.PlantID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("Plant %s is listed more than once", line.PlantCode))
		}
		plant, err := registry.GetForUpdate(ctx, line.PlantID)
		if err != nil {
			return nil, mapPlantLoadError(err, line.PlantCode)
		}
		locked[line.PlantID] = plant
	}
	return locked, nil
}

func lineFor(idx int, plant *models.Plant) models.PlantEntryLine {
	return models.PlantEntryLine{
		Idx:       idx + 1,
		PlantID:   plant.ID,
		PlantCode: plant.Code,
		Strain:    plant.Strain,
		UOM:       lineUOM,
	}
}

func validateEntry(entry *models.PlantEntry) error {
	if !entry.Purpose.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported plant entry purpose %q", entry.Purpose))
	}
	if entry.TargetWarehouse == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "target warehouse is required")
	}
	quantities := []struct {
		name string
		qty  decimal.Decimal
	}{
		{"flower", entry.Flower},
		{"other_material", entry.OtherMaterial},
		{"waste", entry.Waste},
	}
	for _, q := range quantities {
		if q.qty.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must not be negative", q.name))
		}
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return metrics.OutcomeError
	}
	switch typed.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}

func mapEntryLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plant entry not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plant entry")
}

func mapPlantLoadError(err error, ref string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Plant %s not found", ref)).
			WithDetails(map[string]any{"plant_code": ref})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plant")
}

func mapStatusError(err error) error {
	if errors.Is(err, ErrStatusConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "plant entry was modified by another transaction")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plant entry status")
}
