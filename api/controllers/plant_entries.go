package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/grovetrace/api/middleware"
	"github.com/angelmondragon/grovetrace/api/responses"
	"github.com/angelmondragon/grovetrace/api/validators"
	"github.com/angelmondragon/grovetrace/internal/plantentry"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

type PlantEntryLineDTO struct {
	Idx       int       `json:"idx"`
	PlantID   uuid.UUID `json:"plant_id"`
	PlantCode string    `json:"plant_code"`
	Strain    string    `json:"strain"`
	UOM       string    `json:"uom"`
}

type PlantEntryItemDTO struct {
	Key       string              `json:"key"`
	ItemID    uuid.UUID           `json:"item_id"`
	ItemCode  string              `json:"item_code"`
	ItemGroup enums.ItemGroupCode `json:"item_group"`
	Quantity  decimal.Decimal     `json:"quantity"`
}

// PlantEntryDTO is the public view of a plant entry with its lines and produced items.
type PlantEntryDTO struct {
	ID                    uuid.UUID               `json:"id"`
	Purpose               enums.PlantEntryPurpose `json:"purpose"`
	Strain                string                  `json:"strain,omitempty"`
	FromPlantRoom         string                  `json:"from_plant_room,omitempty"`
	TargetWarehouse       string                  `json:"target_warehouse"`
	Flower                decimal.Decimal         `json:"flower"`
	OtherMaterial         decimal.Decimal         `json:"other_material"`
	Waste                 decimal.Decimal         `json:"waste"`
	AdditionalCollections bool                    `json:"additional_collections"`
	DocStatus             enums.DocStatus         `json:"doc_status"`
	SubmittedAt           *time.Time              `json:"submitted_at,omitempty"`
	CancelledAt           *time.Time              `json:"cancelled_at,omitempty"`
	Lines                 []PlantEntryLineDTO     `json:"lines"`
	Items                 []PlantEntryItemDTO     `json:"items"`
}

func plantEntryDTO(e *models.PlantEntry) PlantEntryDTO {
	dto := PlantEntryDTO{
		ID:                    e.ID,
		Purpose:               e.Purpose,
		Strain:                e.Strain,
		FromPlantRoom:         e.FromPlantRoom,
		TargetWarehouse:       e.TargetWarehouse,
		Flower:                e.Flower,
		OtherMaterial:         e.OtherMaterial,
		Waste:                 e.Waste,
		AdditionalCollections: e.AdditionalCollections,
		DocStatus:             e.DocStatus,
		SubmittedAt:           e.SubmittedAt,
		CancelledAt:           e.CancelledAt,
		Lines:                 make([]PlantEntryLineDTO, 0, len(e.Lines)),
		Items:                 make([]PlantEntryItemDTO, 0, len(e.Items)),
	}
	for _, line := range e.Lines {
		dto.Lines = append(dto.Lines, PlantEntryLineDTO{
			Idx:       line.Idx,
			PlantID:   line.PlantID,
			PlantCode: line.PlantCode,
			Strain:    line.Strain,
			UOM:       line.UOM,
		})
	}
	for _, item := range e.Items {
		dto.Items = append(dto.Items, PlantEntryItemDTO{
			Key:       item.ItemKey,
			ItemID:    item.ItemID,
			ItemCode:  item.ItemCode,
			ItemGroup: item.ItemGroup,
			Quantity:  item.Quantity,
		})
	}
	return dto
}

type createPlantEntryRequest struct {
	Purpose               string          `json:"purpose" validate:"omitempty,oneof=harvest cure convert"`
	Strain                string          `json:"strain" validate:"max=140"`
	FromPlantRoom         string          `json:"from_plant_room" validate:"max=140"`
	TargetWarehouse       string          `json:"target_warehouse" validate:"required,max=140"`
	Flower                decimal.Decimal `json:"flower" validate:"gte=0"`
	OtherMaterial         decimal.Decimal `json:"other_material" validate:"gte=0"`
	Waste                 decimal.Decimal `json:"waste" validate:"gte=0"`
	AdditionalCollections bool            `json:"additional_collections"`
	PlantIDs              []uuid.UUID     `json:"plant_ids"`
}

func (r createPlantEntryRequest) toInput() (plantentry.DraftInput, error) {
	purpose, err := enums.ParsePlantEntryPurpose(r.Purpose)
	if err != nil {
		return plantentry.DraftInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purpose")
	}
	return plantentry.DraftInput{
		Purpose:               purpose,
		Strain:                validators.SanitizeString(r.Strain, 140),
		FromPlantRoom:         validators.SanitizeString(r.FromPlantRoom, 140),
		TargetWarehouse:       validators.SanitizeString(r.TargetWarehouse, 140),
		Flower:                r.Flower,
		OtherMaterial:         r.OtherMaterial,
		Waste:                 r.Waste,
		AdditionalCollections: r.AdditionalCollections,
		PlantIDs:              r.PlantIDs,
	}, nil
}

// PlantEntryCreate stores a draft plant entry.
func PlantEntryCreate(svc plantentry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plant entry service unavailable"))
			return
		}

		var payload createPlantEntryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.CreateDraft(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, plantEntryDTO(entry))
	}
}

func PlantEntryGet(svc plantentry.Service, logg *logger.Logger) http.HandlerFunc {
	return plantEntryAction(svc, logg, func(ctx context.Context, id uuid.UUID, _ string) (*models.PlantEntry, error) {
		return svc.Get(ctx, id)
	})
}

// PlantEntryPopulate replaces the draft lines with the plants matching its filters.
func PlantEntryPopulate(svc plantentry.Service, logg *logger.Logger) http.HandlerFunc {
	return plantEntryAction(svc, logg, func(ctx context.Context, id uuid.UUID, _ string) (*models.PlantEntry, error) {
		return svc.PopulateLines(ctx, id)
	})
}

func PlantEntrySubmit(svc plantentry.Service, logg *logger.Logger) http.HandlerFunc {
	return plantEntryAction(svc, logg, func(ctx context.Context, id uuid.UUID, requestID string) (*models.PlantEntry, error) {
		return svc.Submit(ctx, plantentry.ActionInput{PlantEntryID: id, RequestID: requestID})
	})
}

func PlantEntryCancel(svc plantentry.Service, logg *logger.Logger) http.HandlerFunc {
	return plantEntryAction(svc, logg, func(ctx context.Context, id uuid.UUID, requestID string) (*models.PlantEntry, error) {
		return svc.Cancel(ctx, plantentry.ActionInput{PlantEntryID: id, RequestID: requestID})
	})
}

func plantEntryAction(svc plantentry.Service, logg *logger.Logger, fn func(ctx context.Context, id uuid.UUID, requestID string) (*models.PlantEntry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plant entry service unavailable"))
			return
		}
		id, err := uuidParam(r, "entryId", "plant entry")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := fn(r.Context(), id, middleware.RequestIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plantEntryDTO(entry))
	}
}
