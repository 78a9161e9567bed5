package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/grovetrace/api/responses"
	"github.com/angelmondragon/grovetrace/api/validators"
	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

// PlantDTO is the public view of a plant.
type PlantDTO struct {
	ID                  uuid.UUID        `json:"id"`
	Code                string           `json:"code"`
	Strain              string           `json:"strain"`
	Room                string           `json:"room,omitempty"`
	State               enums.PlantState `json:"state"`
	DocStatus           enums.DocStatus  `json:"doc_status"`
	Disabled            bool             `json:"disabled"`
	HarvestScheduled    bool             `json:"harvest_scheduled"`
	HarvestScheduleTime *time.Time       `json:"harvest_schedule_time,omitempty"`
	HarvestCollect      int              `json:"harvest_collect"`
	CureCollect         int              `json:"cure_collect"`
	DestroyScheduled    bool             `json:"destroy_scheduled"`
	Version             int              `json:"version"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func plantDTO(p *models.Plant) PlantDTO {
	return PlantDTO{
		ID:                  p.ID,
		Code:                p.Code,
		Strain:              p.Strain,
		Room:                p.Room,
		State:               p.State,
		DocStatus:           p.DocStatus,
		Disabled:            p.Disabled,
		HarvestScheduled:    p.HarvestScheduled,
		HarvestScheduleTime: p.HarvestScheduleTime,
		HarvestCollect:      p.HarvestCollect,
		CureCollect:         p.CureCollect,
		DestroyScheduled:    p.DestroyScheduled,
		Version:             p.Version,
		UpdatedAt:           p.UpdatedAt,
	}
}

type registerPlantRequest struct {
	Code   string `json:"code" validate:"required,max=64,doccode"`
	Strain string `json:"strain" validate:"required,max=140"`
	Room   string `json:"room" validate:"max=140"`
}

type scheduleHarvestRequest struct {
	At *time.Time `json:"at"`
}

// PlantRegister creates a draft plant.
func PlantRegister(svc plants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plant service unavailable"))
			return
		}

		var payload registerPlantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plant, err := svc.Register(r.Context(), plants.RegisterInput{
			Code:   validators.SanitizeString(payload.Code, 64),
			Strain: validators.SanitizeString(payload.Strain, 140),
			Room:   validators.SanitizeString(payload.Room, 140),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, plantDTO(plant))
	}
}

// PlantSubmit confirms a draft plant.
func PlantSubmit(svc plants.Service, logg *logger.Logger) http.HandlerFunc {
	return plantAction(svc, logg, func(r *http.Request, id uuid.UUID) (*models.Plant, error) {
		return svc.Submit(r.Context(), id)
	})
}

// PlantScheduleHarvest flags a plant for harvest. The body is optional; without
// an "at" timestamp the current time is recorded.
func PlantScheduleHarvest(svc plants.Service, logg *logger.Logger) http.HandlerFunc {
	return plantAction(svc, logg, func(r *http.Request, id uuid.UUID) (*models.Plant, error) {
		var payload scheduleHarvestRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.ScheduleHarvest(r.Context(), id, payload.At)
	})
}

func PlantScheduleDestruction(svc plants.Service, logg *logger.Logger) http.HandlerFunc {
	return plantAction(svc, logg, func(r *http.Request, id uuid.UUID) (*models.Plant, error) {
		return svc.ScheduleDestruction(r.Context(), id)
	})
}

// PlantDetails returns the strain of an active plant.
func PlantDetails(svc plants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plant service unavailable"))
			return
		}
		id, err := uuidParam(r, "plantId", "plant")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		details, err := svc.Details(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

func plantAction(svc plants.Service, logg *logger.Logger, fn func(r *http.Request, id uuid.UUID) (*models.Plant, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plant service unavailable"))
			return
		}
		id, err := uuidParam(r, "plantId", "plant")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plant, err := fn(r, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plantDTO(plant))
	}
}

func uuidParam(r *http.Request, key, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label+" id")
	}
	return id, nil
}
