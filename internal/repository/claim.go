package repository

import (
	"context"
	"errors"
	"time"

	"claimpro/internal/models"

	"gorm.io/gorm"
)

const claimsTable = "claims"

// ErrStaleVersion is returned by ClaimRepository.Update when no row matched
// the expected version, either because it changed or because it was removed.
var ErrStaleVersion = errors.New("claim version is stale")

// ClaimRepository defines persistence operations for claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id uint) (*models.Claim, error)
	ListBySubmitter(ctx context.Context, identity string) ([]models.Claim, error)
	ListByStatuses(ctx context.Context, statuses ...models.ClaimStatus) ([]models.Claim, error)
	Update(ctx context.Context, claim *models.Claim, expectedVersion uint) error
	Exists(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository returns a GORM-backed ClaimRepository.
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Create(ctx context.Context, claim *models.Claim) (err error) {
	ctx, finish := startQuery(ctx, claimsTable, "create")
	defer func() { finish(err) }()

	claim.ID = 0
	claim.Version = 1
	if claim.Status == "" {
		claim.Status = models.ClaimStatusPending
	}
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id uint) (_ *models.Claim, err error) {
	ctx, finish := startQuery(ctx, claimsTable, "select")
	defer func() { finish(err) }()

	var claim models.Claim
	if err := r.db.WithContext(ctx).First(&claim, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Claim", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &claim, nil
}

func (r *claimRepository) ListBySubmitter(ctx context.Context, identity string) (_ []models.Claim, err error) {
	ctx, finish := startQuery(ctx, claimsTable, "list_by_submitter")
	defer func() { finish(err) }()

	claims := []models.Claim{}
	if err := r.db.WithContext(ctx).
		Where("submitter_identity = ?", identity).
		Order("submitted_date DESC").Order("id DESC").
		Find(&claims).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return claims, nil
}

func (r *claimRepository) ListByStatuses(ctx context.Context, statuses ...models.ClaimStatus) (_ []models.Claim, err error) {
	ctx, finish := startQuery(ctx, claimsTable, "list_by_status")
	defer func() { finish(err) }()

	claims := []models.Claim{}
	if len(statuses) == 0 {
		return claims, nil
	}
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("submitted_date DESC").Order("id DESC").
		Find(&claims).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return claims, nil
}

// Update writes every mutable column of claim, conditioned on the stored
// version still being expectedVersion. SubmitterIdentity and SubmittedDate
// are never written. On success claim.Version is advanced.
func (r *claimRepository) Update(ctx context.Context, claim *models.Claim, expectedVersion uint) (err error) {
	ctx, finish := startQuery(ctx, claimsTable, "update")
	defer func() { finish(err) }()

	now := time.Now().UTC()
	next := expectedVersion + 1
	res := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("id = ? AND version = ?", claim.ID, expectedVersion).
		Updates(map[string]any{
			"lecturer_id":           claim.LecturerID,
			"hours_worked":          claim.HoursWorked,
			"hourly_rate":           claim.HourlyRate,
			"total_amount":          claim.TotalAmount,
			"status":                string(claim.Status),
			"document_type":         claim.DocumentType,
			"original_file_name":    claim.OriginalFileName,
			"stored_file_reference": claim.StoredFileReference,
			"approval_by":           claim.ApprovalBy,
			"approval_date":         claim.ApprovalDate,
			"approval_status":       claim.ApprovalStatus,
			"notes":                 claim.Notes,
			"comments":              claim.Comments,
			"version":               next,
			"updated_at":            now,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}

	claim.Version = next
	claim.UpdatedAt = now
	return nil
}

func (r *claimRepository) Exists(ctx context.Context, id uint) (_ bool, err error) {
	ctx, finish := startQuery(ctx, claimsTable, "exists")
	defer func() { finish(err) }()

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Claim{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Delete removes the claim. Deleting a missing claim is not an error.
func (r *claimRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, finish := startQuery(ctx, claimsTable, "delete")
	defer func() { finish(err) }()

	if err := r.db.WithContext(ctx).Delete(&models.Claim{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
