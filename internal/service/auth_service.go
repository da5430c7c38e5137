package service

import (
	"context"
	"errors"
	"log/slog"

	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/repository"
	"claimpro/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService struct {
	users repository.UserRepository
	// bcryptCost is lowered in tests.
	bcryptCost int
}

func NewAuthService(users repository.UserRepository) *AuthService {
	return &AuthService{users: users, bcryptCost: bcrypt.DefaultCost}
}

// Register creates an account with a bcrypt-hashed password. Duplicate
// emails are reported as a CONFLICT.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldValidationError("Email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("Password", err.Error())
	}
	if err := validation.ValidatePersonName("first name", in.FirstName); err != nil {
		return nil, models.NewFieldValidationError("FirstName", err.Error())
	}
	if err := validation.ValidatePersonName("last name", in.LastName); err != nil {
		return nil, models.NewFieldValidationError("LastName", err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.GlobalLogger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Login checks the credentials and returns the user. Token issuance is left
// to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			observability.GlobalLogger.WarnContext(ctx, "stored password hash unusable",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("error", err.Error()),
			)
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
