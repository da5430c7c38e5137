package service

import (
	"context"
	"log/slog"

	"claimpro/internal/cache"
	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/repository"
	"claimpro/internal/validation"
)

// FieldRoleName is the input field reported on role name validation errors.
const FieldRoleName = "Name"

type RoleService struct {
	roles repository.RoleRepository
	users repository.UserRepository
}

func NewRoleService(roles repository.RoleRepository, users repository.UserRepository) *RoleService {
	return &RoleService{roles: roles, users: users}
}

func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

// CreateRole creates the role unless one with the same name exists, in which
// case the existing role is returned with created=false.
func (s *RoleService) CreateRole(ctx context.Context, name string) (*models.Role, bool, error) {
	name = validation.NormalizeRoleName(name)
	if err := validation.ValidateRoleName(name); err != nil {
		return nil, false, models.NewFieldValidationError(FieldRoleName, err.Error())
	}

	existing, err := s.roles.GetByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	role := &models.Role{Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		if !models.HasCode(err, models.CodeConflict) {
			return nil, false, err
		}
		// lost a race with a concurrent create
		existing, getErr := s.roles.GetByName(ctx, name)
		if getErr != nil || existing == nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	observability.GlobalLogger.InfoContext(ctx, "role created", slog.String("role", role.Name))
	return role, true, nil
}

// EnsureBuiltInRoles creates any missing built-in role.
func (s *RoleService) EnsureBuiltInRoles(ctx context.Context) error {
	for _, name := range models.BuiltInRoles {
		if _, _, err := s.CreateRole(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *RoleService) AssignRole(ctx context.Context, email, roleName string) error {
	user, role, err := s.resolve(ctx, email, roleName)
	if err != nil {
		return err
	}
	if err := s.roles.Assign(ctx, user.ID, role.ID); err != nil {
		return err
	}
	cache.InvalidateUserRoles(ctx, user.ID)
	observability.GlobalLogger.InfoContext(ctx, "role assigned",
		slog.String("email", user.Email),
		slog.String("role", role.Name),
	)
	return nil
}

func (s *RoleService) RevokeRole(ctx context.Context, email, roleName string) error {
	user, role, err := s.resolve(ctx, email, roleName)
	if err != nil {
		return err
	}
	if err := s.roles.Revoke(ctx, user.ID, role.ID); err != nil {
		return err
	}
	cache.InvalidateUserRoles(ctx, user.ID)
	observability.GlobalLogger.InfoContext(ctx, "role revoked",
		slog.String("email", user.Email),
		slog.String("role", role.Name),
	)
	return nil
}

// RolesFor returns the user's role labels, cached in Redis for a few minutes.
// It satisfies middleware.RoleResolver.
func (s *RoleService) RolesFor(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := cache.Aside(ctx, cache.UserRolesKey(userID), &names, cache.UserRolesTTL, func() error {
		found, err := s.roles.NamesForUser(ctx, userID)
		if err != nil {
			return err
		}
		names = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *RoleService) resolve(ctx context.Context, email, roleName string) (*models.User, *models.Role, error) {
	email = validation.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewNotFoundError("User", email)
	}

	roleName = validation.NormalizeRoleName(roleName)
	role, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, nil, err
	}
	if role == nil {
		return nil, nil, models.NewNotFoundError("Role", roleName)
	}
	return user, role, nil
}
