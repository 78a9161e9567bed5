package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/internal/stock"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/types"
)

type stubItems struct {
	item *models.Item
	err  error
}

func (s stubItems) GetByCode(context.Context, string) (*models.Item, error) {
	return s.item, s.err
}

type stubLedger struct {
	balance  decimal.Decimal
	issueErr error
	issued   []stock.Movement
}

func (s *stubLedger) Balance(context.Context, *gorm.DB, string, string) (decimal.Decimal, error) {
	return s.balance, nil
}

func (s *stubLedger) Issue(_ context.Context, movement stock.Movement) (*models.StockLedgerEntry, error) {
	s.issued = append(s.issued, movement)
	if s.issueErr != nil {
		return nil, s.issueErr
	}
	return &models.StockLedgerEntry{
		ID:            uuid.New(),
		ItemCode:      movement.ItemCode,
		Warehouse:     movement.Warehouse,
		Type:          enums.StockEntryIssue,
		QtyChange:     movement.Quantity.Neg(),
		ReferenceType: movement.ReferenceType,
		ReferenceID:   movement.ReferenceID,
	}, nil
}

func sampleItem() *models.Item {
	return &models.Item{
		ID:               uuid.New(),
		Code:             "GT00000007",
		Name:             "Blue Dream Flower",
		ItemGroup:        enums.ItemGroupFlower,
		Quantity:         decimal.RequireFromString("12.5"),
		StockUOM:         "Gram",
		DefaultWarehouse: "Vault - GT",
	}
}

func issueRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return withURLParam(req, "itemCode", "GT00000007")
}

func TestItemIssueUsesRequestedWarehouse(t *testing.T) {
	ledger := &stubLedger{balance: decimal.RequireFromString("10")}
	ref := uuid.New()
	rec := httptest.NewRecorder()

	body := `{"warehouse":"Kitchen","quantity":"2.5","reference_type":"batch","reference_id":"` + ref.String() + `"}`
	ItemIssue(stubItems{item: sampleItem()}, ledger, nil).ServeHTTP(rec, issueRequest(body))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ledger.issued, 1)
	issued := ledger.issued[0]
	assert.Equal(t, "GT00000007", issued.ItemCode)
	assert.Equal(t, "Kitchen", issued.Warehouse)
	assert.True(t, issued.Quantity.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "batch", issued.ReferenceType)
	require.NotNil(t, issued.ReferenceID)
	assert.Equal(t, ref, *issued.ReferenceID)

	var envelope struct {
		Data StockMovementDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Data.QtyChange.Equal(decimal.RequireFromString("-2.5")))
	assert.True(t, envelope.Data.Balance.Equal(decimal.RequireFromString("10")))
}

func TestItemIssueDefaultsToItemWarehouse(t *testing.T) {
	ledger := &stubLedger{}
	rec := httptest.NewRecorder()

	ItemIssue(stubItems{item: sampleItem()}, ledger, nil).ServeHTTP(rec, issueRequest(`{"quantity":"1"}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ledger.issued, 1)
	assert.Equal(t, "Vault - GT", ledger.issued[0].Warehouse)
}

func TestItemIssueRejectsBadQuantity(t *testing.T) {
	for _, body := range []string{`{}`, `{"quantity":"-1"}`, `{"quantity":"0"}`} {
		ledger := &stubLedger{}
		rec := httptest.NewRecorder()

		ItemIssue(stubItems{item: sampleItem()}, ledger, nil).ServeHTTP(rec, issueRequest(body))

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Empty(t, ledger.issued, body)
	}
}

func TestItemIssueSurfacesLedgerRefusal(t *testing.T) {
	ledger := &stubLedger{issueErr: pkgerrors.New(pkgerrors.CodeStateConflict, "item GT00000007 is disabled")}
	rec := httptest.NewRecorder()

	ItemIssue(stubItems{item: sampleItem()}, ledger, nil).ServeHTTP(rec, issueRequest(`{"quantity":"1"}`))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, string(pkgerrors.CodeStateConflict), envelope.Error.Code)
}

func TestItemGetNotFound(t *testing.T) {
	items := stubItems{err: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "itemCode", "missing")
	rec := httptest.NewRecorder()

	ItemGet(items, &stubLedger{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemGetReportsBalance(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "itemCode", "GT00000007")
	rec := httptest.NewRecorder()

	ItemGet(stubItems{item: sampleItem()}, &stubLedger{balance: decimal.RequireFromString("12.5")}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data ItemDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "GT00000007", envelope.Data.Code)
	assert.True(t, envelope.Data.Balance.Equal(decimal.RequireFromString("12.5")))
}
