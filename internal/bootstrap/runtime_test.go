package bootstrap

import (
	"context"
	"testing"

	"claimpro/internal/config"
	"claimpro/internal/database"
	"claimpro/internal/models"
	"claimpro/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestEnsureDevAdmin(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	cfg := &config.Config{
		Env:               "development",
		DevBootstrapAdmin: true,
		DevAdminEmail:     "Root@ClaimPro.local",
		DevAdminPassword:  "Dev-Admin-Pass-1",
	}

	require.NoError(t, ensureDevAdmin(ctx, cfg, db))
	require.NoError(t, ensureDevAdmin(ctx, cfg, db), "second run is a no-op")

	users := repository.NewUserRepository(db)
	admin, err := users.GetByEmail(ctx, "root@claimpro.local")
	require.NoError(t, err)
	require.NotNil(t, admin)

	names, err := repository.NewRoleRepository(db).NamesForUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdministrator}, names)
}

func TestEnsureDevAdmin_Skipped(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	for _, cfg := range []*config.Config{
		{Env: "production", DevBootstrapAdmin: true, DevAdminPassword: "x"},
		{Env: "development", DevBootstrapAdmin: false},
	} {
		require.NoError(t, ensureDevAdmin(ctx, cfg, db))
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureDevAdmin_RequiresPassword(t *testing.T) {
	cfg := &config.Config{Env: "development", DevBootstrapAdmin: true}
	assert.Error(t, ensureDevAdmin(context.Background(), cfg, setupDB(t)))
}

func TestEnsureBuiltIns(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, EnsureBuiltIns(context.Background(), db))

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.BuiltInRoles)), count)
}
