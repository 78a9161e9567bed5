package plants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
	"github.com/angelmondragon/grovetrace/pkg/outbox"
	"github.com/angelmondragon/grovetrace/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter queues domain events inside the caller's transaction.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes plant registry actions outside the plant entry lifecycle.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Plant, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	Submit(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	ScheduleHarvest(ctx context.Context, id uuid.UUID, at *time.Time) (*models.Plant, error)
	ScheduleDestruction(ctx context.Context, id uuid.UUID) (*models.Plant, error)
	Details(ctx context.Context, id uuid.UUID) (*Details, error)
}

// RegisterInput describes a new cultivation unit.
type RegisterInput struct {
	Code   string
	Strain string
	Room   string
}

// Details is the summary returned by the detail lookup.
type Details struct {
	Strain string `json:"strain"`
}

type service struct {
	repo   Repository
	tx     txRunner
	events EventEmitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the plant service. events may be nil, in which case registry
// actions are not announced on the outbox.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, events EventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plant repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		events: events,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Plant, error) {
	code := strings.TrimSpace(input.Code)
	strain := strings.TrimSpace(input.Strain)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plant code is required")
	}
	if strain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "strain is required")
	}

	plant := &models.Plant{
		Code:      code,
		Strain:    strain,
		Room:      strings.TrimSpace(input.Room),
		State:     enums.PlantStateGrowing,
		DocStatus: enums.DocStatusDraft,
	}
	if err := s.repo.Create(ctx, plant); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("plant %s already exists", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plant")
	}
	return plant, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	plant, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return plant, nil
}

func (s *service) Submit(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	return s.mutate(ctx, id, payloads.PlantActionSubmitted, func(plant *models.Plant) error {
		if plant.DocStatus != enums.DocStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("plant %s is not a draft", plant.Code))
		}
		plant.DocStatus = enums.DocStatusSubmitted
		return nil
	})
}

func (s *service) ScheduleHarvest(ctx context.Context, id uuid.UUID, at *time.Time) (*models.Plant, error) {
	return s.mutate(ctx, id, payloads.PlantActionHarvestScheduled, func(plant *models.Plant) error {
		if err := requireSchedulable(plant); err != nil {
			return err
		}
		if plant.State != enums.PlantStateGrowing {
			return pkgerrors.New(pkgerrors.CodeInvalidHarvestPrecondition,
				fmt.Sprintf("Plant %s must be in Growing state for harvest.", plant.Code)).
				WithDetails(plantDetails(plant))
		}
		when := s.now().UTC()
		if at != nil {
			when = at.UTC()
		}
		plant.HarvestScheduled = true
		plant.HarvestScheduleTime = &when
		return nil
	})
}

func (s *service) ScheduleDestruction(ctx context.Context, id uuid.UUID) (*models.Plant, error) {
	return s.mutate(ctx, id, payloads.PlantActionDestructionScheduled, func(plant *models.Plant) error {
		if err := requireSchedulable(plant); err != nil {
			return err
		}
		plant.DestroyScheduled = true
		return nil
	})
}

// Details returns the strain of a plant that has not been disabled. Draft
// plants qualify; only retirement makes a plant inactive here.
func (s *service) Details(ctx context.Context, id uuid.UUID) (*Details, error) {
	plant, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if plant.Disabled {
		return nil, pkgerrors.New(pkgerrors.CodePlantNotActive, fmt.Sprintf("Plant %s is not active", plant.Code)).
			WithDetails(plantDetails(plant))
	}
	return &Details{Strain: plant.Strain}, nil
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, action payloads.PlantAction, apply func(plant *models.Plant) error) (*models.Plant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plant id required")
	}
	var result *models.Plant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		plant, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return mapLoadError(err)
		}
		if err := apply(plant); err != nil {
			return err
		}
		if err := repo.Save(ctx, plant, SaveOptions{}); err != nil {
			return MapSaveError(err)
		}
		if err := s.announce(ctx, tx, plant, action); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue plant event")
		}
		result = plant
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithPlantID(ctx, result.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"plant_code":        result.Code,
			"doc_status":        result.DocStatus,
			"harvest_scheduled": result.HarvestScheduled,
			"destroy_scheduled": result.DestroyScheduled,
		})
		s.logg.Info(logCtx, "plant updated")
	}
	return result, nil
}

func (s *service) announce(ctx context.Context, tx *gorm.DB, plant *models.Plant, action payloads.PlantAction) error {
	if s.events == nil {
		return nil
	}
	now := s.now().UTC()
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPlantUpdated,
		AggregateType: enums.AggregatePlant,
		AggregateID:   plant.ID,
		OccurredAt:    now,
		Data: payloads.PlantUpdatedEvent{
			PlantID:             plant.ID,
			PlantCode:           plant.Code,
			Action:              action,
			State:               plant.State,
			DocStatus:           plant.DocStatus,
			HarvestScheduled:    plant.HarvestScheduled,
			HarvestScheduleTime: plant.HarvestScheduleTime,
			DestroyScheduled:    plant.DestroyScheduled,
			UpdatedAt:           now,
		},
	})
}

func requireSchedulable(plant *models.Plant) error {
	if !plant.IsActive() {
		return pkgerrors.New(pkgerrors.CodeInactivePlant, fmt.Sprintf("Plant %s is not active.", plant.Code)).
			WithDetails(plantDetails(plant))
	}
	if plant.DestroyScheduled {
		return pkgerrors.New(pkgerrors.CodePlantScheduledForDestruction,
			fmt.Sprintf("Plant %s has been scheduled for destruction.", plant.Code)).
			WithDetails(plantDetails(plant))
	}
	return nil
}

func plantDetails(plant *models.Plant) map[string]any {
	return map[string]any{
		"plant_id":   plant.ID.String(),
		"plant_code": plant.Code,
	}
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plant not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plant")
}

// MapSaveError translates repository save failures into API errors.
func MapSaveError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "plant was modified by another transaction")
	case errors.Is(err, ErrSubmittedPlantImmutable):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "plant is confirmed and cannot be edited")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save plant")
	}
}
