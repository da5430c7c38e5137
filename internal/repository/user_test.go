package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"claimpro/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedEmail string
		expectedCode  string
	}{
		{
			name:   "Driver Error",
			userID: 7,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(7, 1).
					WillReturnError(errors.New("connection refused"))
			},
			expectedCode: models.CodeInternal,
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode), "got %v", err)
				assert.Nil(t, user)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.expectedEmail, user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_EmailLookupAndDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "lecturer@uni.ac", Password: "hash"}))

	found, err := repo.GetByEmail(ctx, "  Lecturer@Uni.ac ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "lecturer@uni.ac", found.Email)

	missing, err := repo.GetByEmail(ctx, "nobody@uni.ac")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &models.User{Email: "lecturer@uni.ac", Password: "hash"})
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)

	byID, err := repo.GetByID(ctx, found.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.Roles)

	users, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
