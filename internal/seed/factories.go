package seed

import (
	"context"
	"math/rand"
	"time"

	"claimpro/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Factory builds claims with plausible values and persists them.
type Factory struct {
	db            *gorm.DB
	faker         *gofakeit.Faker
	rng           *rand.Rand
	documentTypes []string
	now           time.Time
}

// NewFactory creates a Factory. A zero seed picks a time-based one.
func NewFactory(db *gorm.DB, seed int64, documentTypes []string) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(documentTypes) == 0 {
		documentTypes = []string{"Timesheet"}
	}
	return &Factory{
		db:            db,
		faker:         gofakeit.New(seed),
		rng:           rand.New(rand.NewSource(seed)),
		documentTypes: documentTypes,
		now:           time.Now().UTC(),
	}
}

// BuildClaim returns an unsaved claim for submitter. Demo totals are
// hours x rate; roughly half the claims are already reviewed.
func (f *Factory) BuildClaim(submitter string) *models.Claim {
	hours := decimal.NewFromInt(int64(f.faker.Number(1, 40))).
		Add(decimal.NewFromFloat(0.5).Mul(decimal.NewFromInt(int64(f.rng.Intn(2)))))
	rate := decimal.NewFromInt(int64(f.faker.Number(150, 650)))
	submitted := f.now.Add(-time.Duration(f.rng.Intn(90*24)) * time.Hour)

	claim := &models.Claim{
		LecturerID:        f.faker.Numerify("LEC-####"),
		SubmitterIdentity: submitter,
		HoursWorked:       hours,
		HourlyRate:        rate,
		TotalAmount:       hours.Mul(rate),
		Status:            models.ClaimStatusPending,
		SubmittedDate:     submitted,
		DocumentType:      f.documentTypes[f.rng.Intn(len(f.documentTypes))],
		Notes:             f.faker.Sentence(8),
	}

	switch f.rng.Intn(4) {
	case 0:
		reviewed := submitted.Add(time.Duration(1+f.rng.Intn(72)) * time.Hour)
		claim.Status = models.ClaimStatusApproved
		claim.ApprovalDate = &reviewed
	case 1:
		claim.Status = models.ClaimStatusRejected
		claim.Comments = f.faker.Sentence(6)
	}
	return claim
}

// CreateClaims persists n claims spread across submitters.
func (f *Factory) CreateClaims(ctx context.Context, submitters []string, n int) ([]*models.Claim, error) {
	if n <= 0 || len(submitters) == 0 {
		return nil, nil
	}
	claims := make([]*models.Claim, 0, n)
	for i := 0; i < n; i++ {
		claims = append(claims, f.BuildClaim(submitters[i%len(submitters)]))
	}
	if err := f.db.WithContext(ctx).CreateInBatches(claims, 100).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
