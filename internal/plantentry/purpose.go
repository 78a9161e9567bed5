package plantentry

import (
	"fmt"

	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
)

// transition is the per purpose behaviour of a plant entry.
type transition struct {
	// validate runs after the shared active and destruction checks.
	validate func(plant *models.Plant) error
	// apply mutates a validated plant on commit.
	apply func(entry *models.PlantEntry, plant *models.Plant)
	// revert undoes apply on reversal. Re-enabling is handled by the caller.
	revert func(entry *models.PlantEntry, plant *models.Plant)
	// selection narrows line population beyond the active and strain filters.
	selection func(filter *plants.ListFilter)
}

var transitions = map[enums.PlantEntryPurpose]transition{
	enums.PlantEntryPurposeCollection: {
		validate:  func(*models.Plant) error { return nil },
		apply:     func(*models.PlantEntry, *models.Plant) {},
		revert:    func(*models.PlantEntry, *models.Plant) {},
		selection: func(*plants.ListFilter) {},
	},
	enums.PlantEntryPurposeHarvest: {
		validate:  validateHarvest,
		apply:     applyHarvest,
		revert:    revertHarvest,
		selection: func(filter *plants.ListFilter) { filter.HarvestScheduled = boolPtr(true) },
	},
	enums.PlantEntryPurposeCure: {
		validate:  validateCure,
		apply:     applyCure,
		revert:    revertCure,
		selection: func(filter *plants.ListFilter) { filter.State = enums.PlantStateDrying },
	},
	enums.PlantEntryPurposeConvert: {
		validate:  validateConvert,
		apply:     applyConvert,
		revert:    func(*models.PlantEntry, *models.Plant) {},
		selection: func(*plants.ListFilter) {},
	},
}

func transitionFor(purpose enums.PlantEntryPurpose) (transition, error) {
	t, ok := transitions[purpose]
	if !ok {
		return transition{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported plant entry purpose %q", purpose))
	}
	return t, nil
}

// validateActive holds for every purpose.
func validateActive(plant *models.Plant) error {
	if !plant.IsActive() {
		return plantError(pkgerrors.CodeInactivePlant, plant, "Plant %s is not active.")
	}
	if plant.DestroyScheduled {
		return plantError(pkgerrors.CodePlantScheduledForDestruction, plant, "Plant %s has been scheduled for destruction.")
	}
	return nil
}

func validateHarvest(plant *models.Plant) error {
	if !plant.HarvestScheduled {
		return plantError(pkgerrors.CodeInvalidHarvestPrecondition, plant, "Plant %s has not been scheduled for harvest.")
	}
	if plant.State != enums.PlantStateGrowing {
		return plantError(pkgerrors.CodeInvalidHarvestPrecondition, plant, "Plant %s must be in Growing state for harvest.")
	}
	return nil
}

func validateCure(plant *models.Plant) error {
	if plant.State != enums.PlantStateDrying {
		return plantError(pkgerrors.CodeInvalidCurePrecondition, plant, "Plant %s must be in Drying state for cure.")
	}
	return nil
}

func validateConvert(plant *models.Plant) error {
	if plant.State != enums.PlantStateGrowing {
		return plantError(pkgerrors.CodeInvalidConvertPrecondition, plant, "Plant %s must be in Growing state for conversion.")
	}
	return nil
}

func applyHarvest(entry *models.PlantEntry, plant *models.Plant) {
	if !entry.AdditionalCollections {
		plant.State = enums.PlantStateDrying
	}
	plant.HarvestScheduled = false
	plant.HarvestScheduleTime = nil
	plant.HarvestCollect++
}

func applyCure(entry *models.PlantEntry, plant *models.Plant) {
	if !entry.AdditionalCollections {
		plant.Disabled = true
	}
	plant.CureCollect++
}

func applyConvert(_ *models.PlantEntry, plant *models.Plant) {
	plant.Disabled = true
}

func revertHarvest(_ *models.PlantEntry, plant *models.Plant) {
	plant.State = enums.PlantStateGrowing
	if plant.HarvestCollect > 0 {
		plant.HarvestCollect--
	}
}

// revertCure leaves the state alone; a cured plant never left Drying.
func revertCure(_ *models.PlantEntry, plant *models.Plant) {
	if plant.CureCollect > 0 {
		plant.CureCollect--
	}
}

func plantError(code pkgerrors.Code, plant *models.Plant, format string) error {
	return pkgerrors.New(code, fmt.Sprintf(format, plant.Code)).WithDetails(map[string]any{
		"plant_id":   plant.ID.String(),
		"plant_code": plant.Code,
	})
}

func boolPtr(v bool) *bool {
	return &v
}
