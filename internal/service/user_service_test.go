package service

import (
	"context"
	"testing"

	"claimpro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()
	repo := new(MockUserRepository)
	repo.On("List", mock.Anything, 20, 40).Return([]models.User{{ID: 41}, {ID: 42}}, nil)

	users, err := NewUserService(repo).ListUsers(context.Background(), 20, 40)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	repo.AssertExpectations(t)
}

func TestUserService_GetUserByID(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		repo := new(MockUserRepository)
		repo.On("GetByID", mock.Anything, uint(7)).Return(&models.User{
			ID:    7,
			Roles: []models.Role{{Name: models.RoleManager}},
		}, nil)

		user, err := NewUserService(repo).GetUserByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, []string{models.RoleManager}, user.RoleNames())
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		repo := new(MockUserRepository)
		repo.On("GetByID", mock.Anything, uint(9)).Return(nil, models.NewNotFoundError("User", 9))

		_, err := NewUserService(repo).GetUserByID(context.Background(), 9)
		assertCode(t, err, models.CodeNotFound)
	})
}
