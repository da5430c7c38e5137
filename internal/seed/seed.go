// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"claimpro/internal/models"
	"claimpro/internal/repository"
	"claimpro/internal/service"
	"claimpro/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures.yml
var fixturesYAML []byte

// DefaultPassword is used for demo accounts when none is supplied.
const DefaultPassword = "ClaimPro-Demo-2026!"

// Account is a demo identity from fixtures.yml.
type Account struct {
	Email     string   `yaml:"email"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Roles     []string `yaml:"roles"`
}

// Fixtures is the parsed fixtures.yml.
type Fixtures struct {
	Accounts      []Account `yaml:"accounts"`
	DocumentTypes []string  `yaml:"document_types"`
}

// LoadFixtures parses the embedded demo fixtures.
func LoadFixtures() (*Fixtures, error) {
	return parseFixtures(fixturesYAML)
}

func parseFixtures(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, a := range f.Accounts {
		if err := validation.ValidateEmail(a.Email); err != nil {
			return nil, fmt.Errorf("fixture account %d: %w", i, err)
		}
	}
	if len(f.DocumentTypes) == 0 {
		f.DocumentTypes = []string{"Timesheet"}
	}
	return &f, nil
}

// Options configuration for the seeder
type Options struct {
	NumClaims   int
	ShouldClean bool
	Password    string
	// RandSeed makes generated claims reproducible when non-zero.
	RandSeed int64
}

// Seeder populates roles, demo accounts and claims.
type Seeder struct {
	db       *gorm.DB
	roles    *service.RoleService
	users    repository.UserRepository
	fixtures *Fixtures
}

func NewSeeder(db *gorm.DB) (*Seeder, error) {
	fixtures, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	users := repository.NewUserRepository(db)
	return &Seeder{
		db:       db,
		roles:    service.NewRoleService(repository.NewRoleRepository(db), users),
		users:    users,
		fixtures: fixtures,
	}, nil
}

// Run seeds everything described by opts and returns the demo accounts.
func (s *Seeder) Run(ctx context.Context, opts Options) ([]*models.User, error) {
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.roles.EnsureBuiltInRoles(ctx); err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	accounts, err := s.SeedAccounts(ctx, opts.Password)
	if err != nil {
		return nil, err
	}

	var lecturers []string
	for i, a := range s.fixtures.Accounts {
		for _, r := range a.Roles {
			if r == models.RoleLecturer {
				lecturers = append(lecturers, accounts[i].Email)
			}
		}
	}

	factory := NewFactory(s.db, opts.RandSeed, s.fixtures.DocumentTypes)
	if _, err := factory.CreateClaims(ctx, lecturers, opts.NumClaims); err != nil {
		return nil, fmt.Errorf("seed claims: %w", err)
	}

	log.Printf("seeded %d accounts and %d claims", len(accounts), opts.NumClaims)
	return accounts, nil
}

// SeedAccounts creates missing demo accounts and assigns their roles.
// Existing accounts keep their password.
func (s *Seeder) SeedAccounts(ctx context.Context, password string) ([]*models.User, error) {
	if password == "" {
		password = DefaultPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	out := make([]*models.User, 0, len(s.fixtures.Accounts))
	for _, a := range s.fixtures.Accounts {
		email := validation.NormalizeEmail(a.Email)
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			user = &models.User{
				Email:     email,
				Password:  string(hashed),
				FirstName: a.FirstName,
				LastName:  a.LastName,
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("create %s: %w", email, err)
			}
		}
		for _, role := range a.Roles {
			if err := s.roles.AssignRole(ctx, email, role); err != nil {
				return nil, fmt.Errorf("assign %s to %s: %w", role, email, err)
			}
		}
		out = append(out, user)
	}
	return out, nil
}

// ClearAll removes claims and demo accounts. Roles are kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	emails := make([]string, 0, len(s.fixtures.Accounts))
	for _, a := range s.fixtures.Accounts {
		emails = append(emails, validation.NormalizeEmail(a.Email))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Claim{}).Error; err != nil {
			return fmt.Errorf("clear claims: %w", err)
		}
		if err := tx.Exec("DELETE FROM user_roles WHERE user_id IN (SELECT id FROM users WHERE email IN ?)", emails).Error; err != nil {
			return fmt.Errorf("clear demo role assignments: %w", err)
		}
		if err := tx.Where("email IN ?", emails).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear demo accounts: %w", err)
		}
		return nil
	})
}
