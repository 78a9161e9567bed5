package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/grovetrace/internal/plants"
	"github.com/angelmondragon/grovetrace/pkg/config"
	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/types"
)

type stubPlantService struct {
	plant      *models.Plant
	details    *plants.Details
	err        error
	registered plants.RegisterInput
	harvestAt  *time.Time
	calls      []string
}

func (s *stubPlantService) Register(_ context.Context, input plants.RegisterInput) (*models.Plant, error) {
	s.registered = input
	s.calls = append(s.calls, "register")
	return s.plant, s.err
}

func (s *stubPlantService) Get(context.Context, uuid.UUID) (*models.Plant, error) {
	s.calls = append(s.calls, "get")
	return s.plant, s.err
}

func (s *stubPlantService) Submit(context.Context, uuid.UUID) (*models.Plant, error) {
	s.calls = append(s.calls, "submit")
	return s.plant, s.err
}

func (s *stubPlantService) ScheduleHarvest(_ context.Context, _ uuid.UUID, at *time.Time) (*models.Plant, error) {
	s.harvestAt = at
	s.calls = append(s.calls, "schedule_harvest")
	return s.plant, s.err
}

func (s *stubPlantService) ScheduleDestruction(context.Context, uuid.UUID) (*models.Plant, error) {
	s.calls = append(s.calls, "schedule_destruction")
	return s.plant, s.err
}

func (s *stubPlantService) Details(context.Context, uuid.UUID) (*plants.Details, error) {
	s.calls = append(s.calls, "details")
	return s.details, s.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func samplePlant() *models.Plant {
	return &models.Plant{
		ID:        uuid.New(),
		Code:      "P-001",
		Strain:    "Blue Dream",
		State:     enums.PlantStateGrowing,
		DocStatus: enums.DocStatusSubmitted,
	}
}

func TestPlantRegister(t *testing.T) {
	svc := &stubPlantService{plant: samplePlant()}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plants",
		strings.NewReader(`{"code":" P-001 ","strain":"Blue Dream","room":"Flower Room"}`))
	rec := httptest.NewRecorder()

	PlantRegister(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, plants.RegisterInput{Code: "P-001", Strain: "Blue Dream", Room: "Flower Room"}, svc.registered)

	var envelope struct {
		Data PlantDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "P-001", envelope.Data.Code)
	assert.Equal(t, enums.PlantStateGrowing, envelope.Data.State)
}

func TestPlantRegisterRequiresStrain(t *testing.T) {
	svc := &stubPlantService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plants", strings.NewReader(`{"code":"P-001"}`))
	rec := httptest.NewRecorder()

	PlantRegister(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestPlantActionsDispatch(t *testing.T) {
	cases := []struct {
		name    string
		handler func(plants.Service) http.HandlerFunc
		call    string
	}{
		{"submit", func(s plants.Service) http.HandlerFunc { return PlantSubmit(s, nil) }, "submit"},
		{"schedule harvest", func(s plants.Service) http.HandlerFunc { return PlantScheduleHarvest(s, nil) }, "schedule_harvest"},
		{"schedule destruction", func(s plants.Service) http.HandlerFunc { return PlantScheduleDestruction(s, nil) }, "schedule_destruction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plant := samplePlant()
			svc := &stubPlantService{plant: plant}
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = withURLParam(req, "plantId", plant.ID.String())
			rec := httptest.NewRecorder()

			tc.handler(svc).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []string{tc.call}, svc.calls)
		})
	}
}

func TestPlantScheduleHarvestParsesTime(t *testing.T) {
	plant := samplePlant()
	svc := &stubPlantService{plant: plant}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"at":"2026-05-01T08:00:00Z"}`))
	req = withURLParam(req, "plantId", plant.ID.String())
	rec := httptest.NewRecorder()

	PlantScheduleHarvest(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.harvestAt)
	assert.True(t, svc.harvestAt.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)))
}

func TestPlantActionRejectsBadID(t *testing.T) {
	svc := &stubPlantService{}
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", nil), "plantId", "not-a-uuid")
	rec := httptest.NewRecorder()

	PlantSubmit(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestPlantDetailsNotActive(t *testing.T) {
	svc := &stubPlantService{
		err: pkgerrors.New(pkgerrors.CodePlantNotActive, "Plant P-001 is not active").
			WithDetails(map[string]any{"plant_code": "P-001"}),
	}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "plantId", uuid.NewString())
	rec := httptest.NewRecorder()

	PlantDetails(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, string(pkgerrors.CodePlantNotActive), envelope.Error.Code)
	assert.Equal(t, "Plant P-001 is not active", envelope.Error.Message)
}

func TestPlantDetailsSuccess(t *testing.T) {
	svc := &stubPlantService{details: &plants.Details{Strain: "Blue Dream"}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "plantId", uuid.NewString())
	rec := httptest.NewRecorder()

	PlantDetails(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"strain":"Blue Dream"}}`, rec.Body.String())
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]db.Pinger{"db": stubPinger{}, "redis": nil}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get(envHeader))
	assert.JSONEq(t, `{"data":{"status":"ready","checks":{"db":"ok"}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]db.Pinger{"db": stubPinger{err: errors.New("down")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
