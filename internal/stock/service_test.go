package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db"
	"github.com/angelmondragon/grovetrace/pkg/db/models"
	"github.com/angelmondragon/grovetrace/pkg/enums"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
)

const testWarehouse = "Vault - GT"

func setupStock(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:stock_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Item{}, &models.StockLedgerEntry{}))

	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), nil)
	require.NoError(t, err)
	return conn, svc
}

func seedItem(t *testing.T, conn *gorm.DB, code string, disabled bool) *models.Item {
	t.Helper()
	item := &models.Item{
		Code:             code,
		Name:             "Blue Dream Waste",
		ItemGroup:        enums.ItemGroupWaste,
		Quantity:         decimal.NewFromInt(2),
		StockUOM:         "Gram",
		IsStockItem:      true,
		DefaultWarehouse: testWarehouse,
		Disabled:         disabled,
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

func movement(item *models.Item, qty string) Movement {
	return Movement{
		ItemID:    item.ID,
		ItemCode:  item.Code,
		Warehouse: testWarehouse,
		Quantity:  decimal.RequireFromString(qty),
	}
}

func TestReceiveAndBalance(t *testing.T) {
	conn, svc := setupStock(t)
	ctx := context.Background()
	item := seedItem(t, conn, "GT000000000001", false)

	balance, err := svc.Balance(ctx, nil, item.Code, testWarehouse)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	require.NoError(t, svc.Receive(ctx, conn, movement(item, "5.5")))
	require.NoError(t, svc.Receive(ctx, nil, movement(item, "2")))

	balance, err = svc.Balance(ctx, nil, item.Code, testWarehouse)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("7.5")), "balance %s", balance)

	other, err := svc.Balance(ctx, nil, item.Code, "Elsewhere")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestReceiveValidatesMovement(t *testing.T) {
	conn, svc := setupStock(t)
	item := seedItem(t, conn, "GT000000000001", false)

	err := svc.Receive(context.Background(), nil, movement(item, "0"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := movement(item, "1")
	bad.Warehouse = ""
	err = svc.Receive(context.Background(), nil, bad)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestIssueConsumesEnabledItems(t *testing.T) {
	conn, svc := setupStock(t)
	ctx := context.Background()
	item := seedItem(t, conn, "GT000000000001", false)
	require.NoError(t, svc.Receive(ctx, nil, movement(item, "5")))

	entry, err := svc.Issue(ctx, movement(item, "1.5"))
	require.NoError(t, err)
	assert.Equal(t, enums.StockEntryIssue, entry.Type)
	assert.True(t, entry.QtyChange.Equal(decimal.RequireFromString("-1.5")))

	balance, err := svc.Balance(ctx, nil, item.Code, testWarehouse)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("3.5")))

	_, err = svc.Issue(ctx, movement(item, "10"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestIssueRefusesDisabledAndUnknownItems(t *testing.T) {
	conn, svc := setupStock(t)
	ctx := context.Background()
	item := seedItem(t, conn, "GT000000000002", true)
	require.NoError(t, svc.Receive(ctx, nil, movement(item, "5")))

	_, err := svc.Issue(ctx, movement(item, "1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	missing := movement(item, "1")
	missing.ItemCode = "GT999"
	_, err = svc.Issue(ctx, missing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReverseZeroesBalance(t *testing.T) {
	conn, svc := setupStock(t)
	ctx := context.Background()
	item := seedItem(t, conn, "GT000000000001", false)
	require.NoError(t, svc.Receive(ctx, nil, movement(item, "4")))

	change, err := svc.Reverse(ctx, conn, movement(item, "4"))
	require.NoError(t, err)
	assert.True(t, change.Equal(decimal.NewFromInt(-4)))

	balance, err := svc.Balance(ctx, nil, item.Code, testWarehouse)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	change, err = svc.Reverse(ctx, conn, movement(item, "4"))
	require.NoError(t, err)
	assert.True(t, change.IsZero())

	entries, err := NewRepository(conn).ListByItem(ctx, item.Code)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	types := []enums.StockEntryType{entries[0].Type, entries[1].Type}
	assert.ElementsMatch(t, []enums.StockEntryType{enums.StockEntryReceipt, enums.StockEntryReversal}, types)
}
