// Package service holds the claim lifecycle, role administration and identity logic.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"claimpro/internal/featureflags"
	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/repository"
	"claimpro/internal/storage"
	"claimpro/internal/validation"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// FieldAttachment is the input field reported on attachment validation errors.
const FieldAttachment = "attachment"

// AttachmentUpload is a document supplied with a claim. Size is the length
// declared by the client and is checked before Content is read.
type AttachmentUpload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

type SubmitClaimInput struct {
	LecturerID   string
	HoursWorked  decimal.Decimal
	HourlyRate   decimal.Decimal
	TotalAmount  decimal.Decimal
	DocumentType string
	Notes        string
	Attachment   *AttachmentUpload
}

// EditClaimInput carries the editable fields. A zero Version means the edit
// is applied against whatever version is loaded.
type EditClaimInput struct {
	Version      uint
	LecturerID   string
	HoursWorked  decimal.Decimal
	HourlyRate   decimal.Decimal
	TotalAmount  decimal.Decimal
	DocumentType string
	Notes        string
	Attachment   *AttachmentUpload
}

type ClaimService struct {
	claims      repository.ClaimRepository
	attachments storage.AttachmentStore
	policy      validation.AttachmentPolicy
	flags       *featureflags.Manager
	now         func() time.Time
}

func NewClaimService(
	claims repository.ClaimRepository,
	attachments storage.AttachmentStore,
	policy validation.AttachmentPolicy,
	flags *featureflags.Manager,
) *ClaimService {
	return &ClaimService{
		claims:      claims,
		attachments: attachments,
		policy:      policy,
		flags:       flags,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AttachmentPolicy reports the accepted upload size and document types.
func (s *ClaimService) AttachmentPolicy() validation.AttachmentPolicy {
	return s.policy
}

// Submit validates and persists a new Pending claim owned by callerIdentity.
// An attachment that was stored before the record insert failed is left in place.
func (s *ClaimService) Submit(ctx context.Context, in SubmitClaimInput, callerIdentity string) (*models.Claim, error) {
	span, ctx := observability.NewSpan(ctx, "ClaimService.Submit")
	defer span.End()

	if err := validateAmounts(in.HoursWorked, in.HourlyRate, in.TotalAmount); err != nil {
		return nil, err
	}
	if err := s.validateAttachment(in.Attachment); err != nil {
		return nil, err
	}

	claim := &models.Claim{
		LecturerID:        in.LecturerID,
		SubmitterIdentity: callerIdentity,
		HoursWorked:       in.HoursWorked,
		HourlyRate:        in.HourlyRate,
		TotalAmount:       in.TotalAmount,
		Status:            models.ClaimStatusPending,
		SubmittedDate:     s.now(),
		DocumentType:      in.DocumentType,
		Notes:             in.Notes,
	}

	if err := s.storeAttachment(ctx, claim, in.Attachment); err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		span.SetError(err)
		if claim.HasAttachment() {
			observability.GlobalLogger.WarnContext(ctx, "claim insert failed after attachment was stored",
				slog.String("stored_file_reference", *claim.StoredFileReference),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	observability.ClaimSubmissions.WithLabelValues(strconv.FormatBool(claim.HasAttachment())).Inc()
	span.AddAttributes(attribute.Int("claim.id", int(claim.ID)))
	return claim, nil
}

// ListOwn returns only claims whose submitter is callerIdentity, newest first.
func (s *ClaimService) ListOwn(ctx context.Context, callerIdentity string) ([]models.Claim, error) {
	return s.claims.ListBySubmitter(ctx, callerIdentity)
}

func (s *ClaimService) ListPending(ctx context.Context) ([]models.Claim, error) {
	return s.claims.ListByStatuses(ctx, models.ClaimStatusPending)
}

func (s *ClaimService) ListHistory(ctx context.Context) ([]models.Claim, error) {
	return s.claims.ListByStatuses(ctx, models.HistoryStatuses...)
}

func (s *ClaimService) GetDetails(ctx context.Context, id uint) (*models.Claim, error) {
	return s.claims.GetByID(ctx, id)
}

// Edit replaces the editable fields of a claim. A new attachment gets a fresh
// stored reference; the previous blob is not removed.
func (s *ClaimService) Edit(ctx context.Context, id uint, in EditClaimInput) (*models.Claim, error) {
	span, ctx := observability.NewSpan(ctx, "ClaimService.Edit")
	defer span.End()
	span.AddAttributes(attribute.Int("claim.id", int(id)))

	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(in.HoursWorked, in.HourlyRate, in.TotalAmount); err != nil {
		return nil, err
	}
	if err := s.validateAttachment(in.Attachment); err != nil {
		return nil, err
	}
	if err := s.storeAttachment(ctx, claim, in.Attachment); err != nil {
		span.SetError(err)
		return nil, err
	}

	claim.LecturerID = in.LecturerID
	claim.HoursWorked = in.HoursWorked
	claim.HourlyRate = in.HourlyRate
	claim.TotalAmount = in.TotalAmount
	claim.DocumentType = in.DocumentType
	claim.Notes = in.Notes

	expected := claim.Version
	if in.Version != 0 {
		expected = in.Version
	}
	if err := s.save(ctx, claim, expected); err != nil {
		span.SetError(err)
		return nil, err
	}
	return claim, nil
}

// Delete removes the claim if it exists. The stored attachment is kept.
func (s *ClaimService) Delete(ctx context.Context, id uint) error {
	return s.claims.Delete(ctx, id)
}

// Reject moves the claim to Rejected and records the reviewer's comment.
// Approval fields are left untouched.
func (s *ClaimService) Reject(ctx context.Context, id uint, comment, reviewerIdentity string) (*models.Claim, error) {
	return s.transition(ctx, id, models.ClaimStatusRejected, reviewerIdentity, func(c *models.Claim) {
		c.Comments = comment
	})
}

// Approve moves the claim to Approved and stamps the approval date.
// Comments and ApprovalBy are left untouched.
func (s *ClaimService) Approve(ctx context.Context, id uint, reviewerIdentity string) (*models.Claim, error) {
	return s.transition(ctx, id, models.ClaimStatusApproved, reviewerIdentity, func(c *models.Claim) {
		now := s.now()
		c.ApprovalDate = &now
	})
}

func (s *ClaimService) transition(
	ctx context.Context,
	id uint,
	to models.ClaimStatus,
	reviewerIdentity string,
	apply func(*models.Claim),
) (*models.Claim, error) {
	span, ctx := observability.NewSpan(ctx, "ClaimService.Transition")
	defer span.End()
	span.AddAttributes(
		attribute.Int("claim.id", int(id)),
		attribute.String("claim.to", string(to)),
		attribute.String("claim.reviewer", reviewerIdentity),
	)

	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := claim.Status
	span.AddAttributes(attribute.String("claim.from", string(from)))
	if from != models.ClaimStatusPending {
		if s.flags.Enabled(featureflags.StrictClaimTransitions, reviewerIdentity) {
			return nil, models.NewFieldValidationError("Status", "claim is not pending")
		}
		observability.ClaimTerminalOverrides.WithLabelValues(string(from), string(to)).Inc()
		observability.GlobalLogger.WarnContext(ctx, "review transition applied to a claim that is not pending",
			slog.Uint64("claim_id", uint64(id)),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("reviewer", reviewerIdentity),
		)
	}

	apply(claim)
	claim.Status = to
	if err := s.save(ctx, claim, claim.Version); err != nil {
		span.SetError(err)
		return nil, err
	}

	observability.ClaimTransitions.WithLabelValues(string(from), string(to)).Inc()
	observability.GlobalLogger.InfoContext(ctx, "claim reviewed",
		slog.Uint64("claim_id", uint64(id)),
		slog.String("status", string(to)),
		slog.String("reviewer", reviewerIdentity),
	)
	return claim, nil
}

// save performs the versioned update. A stale write against a claim that was
// deleted meanwhile becomes NotFound; otherwise it is a concurrency conflict.
func (s *ClaimService) save(ctx context.Context, claim *models.Claim, expectedVersion uint) error {
	err := s.claims.Update(ctx, claim, expectedVersion)
	if !errors.Is(err, repository.ErrStaleVersion) {
		return err
	}

	exists, existsErr := s.claims.Exists(ctx, claim.ID)
	if existsErr != nil {
		return existsErr
	}
	if !exists {
		return models.NewNotFoundError("Claim", claim.ID)
	}

	observability.ConcurrencyConflicts.Inc()
	observability.GlobalLogger.ErrorContext(ctx, "claim update lost to a concurrent write",
		slog.Uint64("claim_id", uint64(claim.ID)),
		slog.Uint64("expected_version", uint64(expectedVersion)),
	)
	return models.NewConcurrencyConflictError("Claim", claim.ID, err)
}

func (s *ClaimService) validateAttachment(upload *AttachmentUpload) error {
	if upload == nil {
		return nil
	}
	err := s.policy.Validate(upload.FileName, upload.Size)
	if err == nil {
		return nil
	}

	var attErr *validation.AttachmentError
	if errors.As(err, &attErr) {
		observability.AttachmentRejections.WithLabelValues(attErr.Reason).Inc()
	}
	appErr := models.NewFieldValidationError(FieldAttachment, err.Error())
	appErr.Err = err
	return appErr
}

func (s *ClaimService) storeAttachment(ctx context.Context, claim *models.Claim, upload *AttachmentUpload) error {
	if upload == nil {
		return nil
	}
	ref, err := s.attachments.Save(ctx, upload.FileName, upload.Content)
	if err != nil {
		return models.NewInternalError(err)
	}
	original := upload.FileName
	claim.OriginalFileName = &original
	claim.StoredFileReference = &ref
	return nil
}

func validateAmounts(hours, rate, total decimal.Decimal) error {
	switch {
	case hours.IsNegative():
		return models.NewFieldValidationError("HoursWorked", "hours worked must not be negative")
	case rate.IsNegative():
		return models.NewFieldValidationError("HourlyRate", "hourly rate must not be negative")
	case total.IsNegative():
		return models.NewFieldValidationError("TotalAmount", "total amount must not be negative")
	}
	return nil
}

// AttachmentReason extracts the attachment rejection reason carried by err, if any.
func AttachmentReason(err error) string {
	var attErr *validation.AttachmentError
	if errors.As(err, &attErr) {
		return attErr.Reason
	}
	return ""
}
