package service

import (
	"context"
	"testing"

	"claimpro/internal/cache"
	"claimpro/internal/models"
	"claimpro/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleFixture(t *testing.T) (*RoleService, repository.UserRepository) {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	return NewRoleService(repository.NewRoleRepository(db), users), users
}

func TestRoleService_CreateRole(t *testing.T) {
	svc, _ := newRoleFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		input       string
		wantCreated bool
		wantName    string
		wantErr     bool
	}{
		{"creates trimmed", "  Dean  ", true, "Dean", false},
		{"existing is a no-op", "Dean", false, "Dean", false},
		{"existing differs only in case", "dean", false, "Dean", false},
		{"empty", "", false, "", true},
		{"blank", "   ", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, created, err := svc.CreateRole(ctx, tt.input)
			if tt.wantErr {
				appErr := assertCode(t, err, models.CodeValidation)
				assert.Equal(t, FieldRoleName, appErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantName, role.Name)
		})
	}

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRoleService_EnsureBuiltInRolesIsRepeatable(t *testing.T) {
	svc, _ := newRoleFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureBuiltInRoles(ctx))
	require.NoError(t, svc.EnsureBuiltInRoles(ctx))

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, models.BuiltInRoles, names)
}

func TestRoleService_AssignRevokeAndCachedLookup(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	svc, users := newRoleFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBuiltInRoles(ctx))

	user := &models.User{Email: "coord@uni.ac", Password: "hash"}
	require.NoError(t, users.Create(ctx, user))

	roles, err := svc.RolesFor(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.True(t, mr.Exists(cache.UserRolesKey(user.ID)), "lookup is cached")

	require.NoError(t, svc.AssignRole(ctx, "Coord@Uni.ac", "coordinator"))
	assert.False(t, mr.Exists(cache.UserRolesKey(user.ID)), "assignment invalidates the cache")

	roles, err = svc.RolesFor(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleCoordinator}, roles)

	require.NoError(t, svc.RevokeRole(ctx, "coord@uni.ac", models.RoleCoordinator))
	roles, err = svc.RolesFor(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestRoleService_AssignUnknownTargets(t *testing.T) {
	svc, users := newRoleFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.EnsureBuiltInRoles(ctx))
	require.NoError(t, users.Create(ctx, &models.User{Email: "x@uni.ac", Password: "hash"}))

	err := svc.AssignRole(ctx, "ghost@uni.ac", models.RoleManager)
	assertCode(t, err, models.CodeNotFound)

	err = svc.AssignRole(ctx, "x@uni.ac", "Dean")
	assertCode(t, err, models.CodeNotFound)
}
