package repository

import (
	"context"
	"errors"

	"claimpro/internal/models"

	"gorm.io/gorm"
)

const rolesTable = "roles"

// RoleRepository defines persistence operations for roles and their assignment.
type RoleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	NamesForUser(ctx context.Context, userID uint) ([]string, error)
	Assign(ctx context.Context, userID, roleID uint) error
	Revoke(ctx context.Context, userID, roleID uint) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository returns a GORM-backed RoleRepository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context) (_ []models.Role, err error) {
	ctx, finish := startQuery(ctx, rolesTable, "list")
	defer func() { finish(err) }()

	roles := []models.Role{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return roles, nil
}

// GetByName matches role names case-insensitively. A missing role yields (nil, nil).
func (r *roleRepository) GetByName(ctx context.Context, name string) (_ *models.Role, err error) {
	ctx, finish := startQuery(ctx, rolesTable, "select")
	defer func() { finish(err) }()

	var role models.Role
	if err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &role, nil
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) (err error) {
	ctx, finish := startQuery(ctx, rolesTable, "create")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Role already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *roleRepository) NamesForUser(ctx context.Context, userID uint) (_ []string, err error) {
	ctx, finish := startQuery(ctx, "user_roles", "names_for_user")
	defer func() { finish(err) }()

	names := []string{}
	if err := r.db.WithContext(ctx).
		Table(rolesTable).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name ASC").
		Pluck("roles.name", &names).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return names, nil
}

// Assign links the user to the role. Assigning an already held role is a no-op.
func (r *roleRepository) Assign(ctx context.Context, userID, roleID uint) (err error) {
	ctx, finish := startQuery(ctx, "user_roles", "assign")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).
		Exec("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT DO NOTHING", userID, roleID).
		Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *roleRepository) Revoke(ctx context.Context, userID, roleID uint) (err error) {
	ctx, finish := startQuery(ctx, "user_roles", "revoke")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).
		Exec("DELETE FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID).
		Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
