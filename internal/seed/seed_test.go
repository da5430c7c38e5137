package seed

import (
	"context"
	"testing"

	"claimpro/internal/database"
	"claimpro/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func TestLoadFixtures(t *testing.T) {
	f, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	if len(f.Accounts) == 0 {
		t.Fatal("expected demo accounts")
	}

	seen := map[string]bool{}
	for _, a := range f.Accounts {
		for _, r := range a.Roles {
			seen[r] = true
		}
	}
	for _, r := range models.BuiltInRoles {
		if !seen[r] {
			t.Fatalf("no demo account holds role %s", r)
		}
	}
}

func TestParseFixtures_RejectsBadEmail(t *testing.T) {
	_, err := parseFixtures([]byte("accounts:\n  - email: not-an-email\n"))
	if err == nil {
		t.Fatal("expected invalid email error")
	}
}

func TestFactory_BuildClaimIsReproducible(t *testing.T) {
	a := NewFactory(nil, 42, nil).BuildClaim("x@uni.ac")
	b := NewFactory(nil, 42, nil).BuildClaim("x@uni.ac")
	if !a.HoursWorked.Equal(b.HoursWorked) || !a.HourlyRate.Equal(b.HourlyRate) || a.Status != b.Status {
		t.Fatalf("same seed produced different claims: %+v vs %+v", a, b)
	}
	if !a.TotalAmount.Equal(a.HoursWorked.Mul(a.HourlyRate)) {
		t.Fatalf("demo total should be hours x rate, got %s", a.TotalAmount)
	}
	if a.Status == models.ClaimStatusRejected && a.ApprovalDate != nil {
		t.Fatal("rejected demo claim must not carry an approval date")
	}
	if a.Status == models.ClaimStatusApproved && a.Comments != "" {
		t.Fatal("approved demo claim must not carry comments")
	}
}

func TestSeeder_RunIsRepeatable(t *testing.T) {
	db := setupSeedTestDB(t)
	s, err := NewSeeder(db)
	if err != nil {
		t.Fatalf("new seeder: %v", err)
	}
	ctx := context.Background()

	opts := Options{NumClaims: 12, ShouldClean: true, RandSeed: 7}
	if _, err := s.Run(ctx, opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	accounts, err := s.Run(ctx, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	var claims int64
	db.Model(&models.Claim{}).Count(&claims)
	if claims != 12 {
		t.Fatalf("expected 12 claims after a clean rerun, got %d", claims)
	}

	var users int64
	db.Model(&models.User{}).Count(&users)
	if int(users) != len(accounts) {
		t.Fatalf("expected %d users, got %d", len(accounts), users)
	}

	var pendingForeign int64
	db.Model(&models.Claim{}).Where("submitter_identity NOT LIKE ?", "lecturer%").Count(&pendingForeign)
	if pendingForeign != 0 {
		t.Fatalf("claims must belong to lecturer accounts, found %d others", pendingForeign)
	}
}
