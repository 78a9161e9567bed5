package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/grovetrace/pkg/db/models"
)

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_plants.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_plants.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260302090000_rooms.sql"), []byte("-- +goose Up\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "create_plants.sql")
	require.Contains(t, err.Error(), "-- +goose Down")
}

func TestEmbeddedMigrationsMatchRepo(t *testing.T) {
	require.NoError(t, validateFS(Migrations()))

	embeddedFiles, _, err := listMigrations(Migrations())
	require.NoError(t, err)
	onDisk, _, err := listMigrations(os.DirFS("migrations"))
	require.NoError(t, err)
	require.Equal(t, onDisk, embeddedFiles)
	require.Equal(t, "create_enum_types", embeddedFiles[0].Name)
}

func TestCreateSQLMigrationOrdersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_later.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := CreateSQLMigration(dir, "add rooms")
	require.NoError(t, err)
	require.Equal(t, "29990101000001_add_rooms.sql", filepath.Base(path))
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Plant Rooms!")
	require.NoError(t, err)
	require.Regexp(t, `\d{14}_add_plant_rooms\.sql$`, path)
	require.NoError(t, ValidateDir(dir))
}

func TestSyncModelsSeedsItemGroupsOnce(t *testing.T) {
	dsn := fmt.Sprintf("file:migrate_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, SyncModels(ctx, conn))
	require.NoError(t, SyncModels(ctx, conn))

	var groups []models.ItemGroup
	require.NoError(t, conn.Order("name").Find(&groups).Error)
	require.Len(t, groups, len(ItemGroupSeeds))
	require.Equal(t, "Flower", groups[0].Name)
}
