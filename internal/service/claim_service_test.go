package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"claimpro/internal/database"
	"claimpro/internal/featureflags"
	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/repository"
	"claimpro/internal/storage"
	"claimpro/internal/validation"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	lecturer = "lecturer@uni.ac"
	reviewer = "manager@uni.ac"
)

// countingStore records how many blobs were written through it.
type countingStore struct {
	storage.AttachmentStore
	saves int
}

func (s *countingStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	s.saves++
	return s.AttachmentStore.Save(ctx, name, r)
}

type claimFixture struct {
	svc   *ClaimService
	repo  repository.ClaimRepository
	store *countingStore
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func newClaimFixture(t *testing.T, flags string) *claimFixture {
	t.Helper()
	repo := repository.NewClaimRepository(newTestDB(t))
	store := &countingStore{AttachmentStore: storage.NewStore(afero.NewMemMapFs())}
	svc := NewClaimService(repo, store, validation.DefaultAttachmentPolicy(), featureflags.NewManager(flags))
	return &claimFixture{svc: svc, repo: repo, store: store}
}

func hourly(hours, rate, total int64) SubmitClaimInput {
	return SubmitClaimInput{
		HoursWorked:  decimal.NewFromInt(hours),
		HourlyRate:   decimal.NewFromInt(rate),
		TotalAmount:  decimal.NewFromInt(total),
		DocumentType: "Timesheet",
	}
}

func upload(name string, size int64) *AttachmentUpload {
	return &AttachmentUpload{FileName: name, Size: size, Content: strings.NewReader("document body")}
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestClaimService_SubmitRejectScenario(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	claim, err := f.svc.Submit(ctx, hourly(10, 20, 0), lecturer)
	require.NoError(t, err)
	assert.NotZero(t, claim.ID)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.Equal(t, lecturer, claim.SubmitterIdentity)
	assert.False(t, claim.SubmittedDate.IsZero())
	assert.True(t, claim.TotalAmount.IsZero(), "total is stored as supplied, not derived")

	_, err = f.svc.Reject(ctx, claim.ID, "Missing receipt", reviewer)
	require.NoError(t, err)

	got, err := f.svc.GetDetails(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusRejected, got.Status)
	assert.Equal(t, "Missing receipt", got.Comments)
	assert.Nil(t, got.ApprovalDate)
	assert.Nil(t, got.ApprovalBy)
	assert.True(t, got.TotalAmount.IsZero())
}

func TestClaimService_ApproveLeavesCommentsAndApprover(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	claim, err := f.svc.Submit(ctx, hourly(4, 50, 200), lecturer)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, claim.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, approved.Status)

	got, err := f.svc.GetDetails(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, got.Status)
	require.NotNil(t, got.ApprovalDate)
	assert.WithinDuration(t, time.Now(), *got.ApprovalDate, time.Minute)
	assert.Empty(t, got.Comments)
	assert.Nil(t, got.ApprovalBy)
}

func TestClaimService_ReviewNotFound(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, 404, reviewer)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.svc.Reject(ctx, 404, "nope", reviewer)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.svc.GetDetails(ctx, 404)
	assertCode(t, err, models.CodeNotFound)
}

func TestClaimService_TerminalTransitions(t *testing.T) {
	t.Run("permissive by default", func(t *testing.T) {
		f := newClaimFixture(t, "")
		ctx := context.Background()

		claim, err := f.svc.Submit(ctx, hourly(1, 1, 1), lecturer)
		require.NoError(t, err)
		_, err = f.svc.Reject(ctx, claim.ID, "Missing receipt", reviewer)
		require.NoError(t, err)

		overrides := observability.ClaimTerminalOverrides.WithLabelValues("Rejected", "Approved")
		before := testutil.ToFloat64(overrides)

		approved, err := f.svc.Approve(ctx, claim.ID, reviewer)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStatusApproved, approved.Status)
		assert.Equal(t, "Missing receipt", approved.Comments, "approve does not clear comments")
		assert.Equal(t, before+1, testutil.ToFloat64(overrides))

		got, err := f.svc.GetDetails(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStatusApproved, got.Status)
	})

	t.Run("strict flag refuses", func(t *testing.T) {
		f := newClaimFixture(t, featureflags.StrictClaimTransitions+"=on")
		ctx := context.Background()

		claim, err := f.svc.Submit(ctx, hourly(1, 1, 1), lecturer)
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, claim.ID, reviewer)
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, claim.ID, "too late", reviewer)
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Equal(t, "claim is not pending", appErr.Message)

		got, err := f.svc.GetDetails(ctx, claim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStatusApproved, got.Status)
		assert.Empty(t, got.Comments)
	})
}

func TestClaimService_SubmitAttachmentValidation(t *testing.T) {
	const limit = 5 * 1024 * 1024

	tests := []struct {
		name   string
		upload *AttachmentUpload
		reason string
	}{
		{"one byte over the limit", upload("timesheet.pdf", limit+1), validation.ReasonAttachmentTooLarge},
		{"oversized and bad type reports size", upload("virus.exe", limit*2), validation.ReasonAttachmentTooLarge},
		{"executable", upload("virus.exe", 10), validation.ReasonUnsupportedAttachmentType},
		{"gif", upload("scan.gif", 10), validation.ReasonUnsupportedAttachmentType},
		{"no extension", upload("README", 10), validation.ReasonUnsupportedAttachmentType},
		{"double extension", upload("invoice.pdf.zip", 10), validation.ReasonUnsupportedAttachmentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture(t, "")
			ctx := context.Background()

			in := hourly(10, 20, 200)
			in.Attachment = tt.upload
			_, err := f.svc.Submit(ctx, in, lecturer)

			appErr := assertCode(t, err, models.CodeValidation)
			assert.Equal(t, FieldAttachment, appErr.Field)
			assert.Equal(t, tt.reason, AttachmentReason(err))

			own, err := f.svc.ListOwn(ctx, lecturer)
			require.NoError(t, err)
			assert.Empty(t, own, "no record is created")
			assert.Zero(t, f.store.saves, "no blob is written")
		})
	}
}

func TestClaimService_SubmitAcceptedAttachments(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.xlsx", "d.PNG", "e.JpEg", "f.jpg"} {
		t.Run(name, func(t *testing.T) {
			f := newClaimFixture(t, "")
			ctx := context.Background()

			in := hourly(10, 20, 200)
			in.Attachment = upload(name, validation.DefaultAttachmentMaxBytes)
			claim, err := f.svc.Submit(ctx, in, lecturer)
			require.NoError(t, err)

			require.NotNil(t, claim.OriginalFileName)
			assert.Equal(t, name, *claim.OriginalFileName)
			require.True(t, claim.HasAttachment())
			ref := *claim.StoredFileReference
			assert.True(t, strings.HasPrefix(ref, "/images/"))
			assert.True(t, strings.HasSuffix(ref, strings.ToLower(name[1:])))

			ok, err := f.store.Exists(ctx, ref)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestClaimService_SubmitRejectsNegativeAmounts(t *testing.T) {
	f := newClaimFixture(t, "")
	_, err := f.svc.Submit(context.Background(), hourly(-1, 20, 0), lecturer)
	appErr := assertCode(t, err, models.CodeValidation)
	assert.Equal(t, "HoursWorked", appErr.Field)
}

func TestClaimService_Views(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	mine1, err := f.svc.Submit(ctx, hourly(1, 10, 10), lecturer)
	require.NoError(t, err)
	mine2, err := f.svc.Submit(ctx, hourly(2, 10, 20), lecturer)
	require.NoError(t, err)
	theirs, err := f.svc.Submit(ctx, hourly(3, 10, 30), "other@uni.ac")
	require.NoError(t, err)
	pending, err := f.svc.Submit(ctx, hourly(4, 10, 40), "other@uni.ac")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, mine1.ID, reviewer)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, theirs.ID, "no", reviewer)
	require.NoError(t, err)

	t.Run("ListOwn is scoped to the caller", func(t *testing.T) {
		own, err := f.svc.ListOwn(ctx, lecturer)
		require.NoError(t, err)
		require.Len(t, own, 2)
		for _, c := range own {
			assert.Equal(t, lecturer, c.SubmitterIdentity)
		}
	})

	t.Run("ListPending is exactly Pending", func(t *testing.T) {
		list, err := f.svc.ListPending(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{mine2.ID, pending.ID}, claimIDs(list))
	})

	t.Run("ListHistory is exactly Approved and Rejected", func(t *testing.T) {
		list, err := f.svc.ListHistory(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint{mine1.ID, theirs.ID}, claimIDs(list))
	})
}

func claimIDs(claims []models.Claim) []uint {
	ids := make([]uint, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestClaimService_Delete(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, 12345), "deleting a missing claim is a no-op")

	in := hourly(1, 1, 1)
	in.Attachment = upload("proof.pdf", 100)
	claim, err := f.svc.Submit(ctx, in, lecturer)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, claim.ID))
	_, err = f.svc.GetDetails(ctx, claim.ID)
	assertCode(t, err, models.CodeNotFound)

	ok, err := f.store.Exists(ctx, *claim.StoredFileReference)
	require.NoError(t, err)
	assert.True(t, ok, "attachment outlives the claim")
}

func TestClaimService_Edit(t *testing.T) {
	f := newClaimFixture(t, "")
	ctx := context.Background()

	in := hourly(10, 20, 200)
	in.Attachment = upload("first.pdf", 100)
	claim, err := f.svc.Submit(ctx, in, lecturer)
	require.NoError(t, err)
	oldRef := *claim.StoredFileReference

	t.Run("missing claim", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, 999, EditClaimInput{})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("updates editable fields only", func(t *testing.T) {
		edited, err := f.svc.Edit(ctx, claim.ID, EditClaimInput{
			Version:      claim.Version,
			HoursWorked:  decimal.NewFromInt(12),
			HourlyRate:   decimal.NewFromInt(20),
			TotalAmount:  decimal.NewFromInt(240),
			DocumentType: "Invoice",
			Notes:        "corrected hours",
			Attachment:   upload("second.png", 100),
		})
		require.NoError(t, err)
		assert.Equal(t, claim.Version+1, edited.Version)

		got, err := f.svc.GetDetails(ctx, claim.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(240).Equal(got.TotalAmount))
		assert.Equal(t, "Invoice", got.DocumentType)
		assert.Equal(t, "corrected hours", got.Notes)
		assert.Equal(t, lecturer, got.SubmitterIdentity)
		assert.Equal(t, models.ClaimStatusPending, got.Status)
		assert.Equal(t, "second.png", *got.OriginalFileName)
		assert.NotEqual(t, oldRef, *got.StoredFileReference)

		ok, err := f.store.Exists(ctx, oldRef)
		require.NoError(t, err)
		assert.True(t, ok, "previous attachment is left in place")
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, claim.ID, EditClaimInput{Version: 1, DocumentType: "stale"})
		assertCode(t, err, models.CodeConcurrencyConflict)
	})

	t.Run("invalid attachment", func(t *testing.T) {
		_, err := f.svc.Edit(ctx, claim.ID, EditClaimInput{Attachment: upload("x.bat", 1)})
		appErr := assertCode(t, err, models.CodeValidation)
		assert.Equal(t, FieldAttachment, appErr.Field)
	})
}

// claimRepoStub lets tests script repository failures.
type claimRepoStub struct {
	repository.ClaimRepository
	getByIDFn func(context.Context, uint) (*models.Claim, error)
	createFn  func(context.Context, *models.Claim) error
	updateFn  func(context.Context, *models.Claim, uint) error
	existsFn  func(context.Context, uint) (bool, error)
}

func (s *claimRepoStub) GetByID(ctx context.Context, id uint) (*models.Claim, error) {
	return s.getByIDFn(ctx, id)
}
func (s *claimRepoStub) Create(ctx context.Context, c *models.Claim) error {
	return s.createFn(ctx, c)
}
func (s *claimRepoStub) Update(ctx context.Context, c *models.Claim, v uint) error {
	return s.updateFn(ctx, c, v)
}
func (s *claimRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}

func TestClaimService_ConcurrentDeleteBecomesNotFound(t *testing.T) {
	repo := &claimRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Claim, error) {
			return &models.Claim{ID: id, Version: 3, Status: models.ClaimStatusPending}, nil
		},
		updateFn: func(context.Context, *models.Claim, uint) error { return repository.ErrStaleVersion },
		existsFn: func(context.Context, uint) (bool, error) { return false, nil },
	}
	svc := NewClaimService(repo, storage.NewStore(afero.NewMemMapFs()), validation.DefaultAttachmentPolicy(), nil)

	_, err := svc.Edit(context.Background(), 7, EditClaimInput{})
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.Approve(context.Background(), 7, reviewer)
	assertCode(t, err, models.CodeNotFound)

	repo.existsFn = func(context.Context, uint) (bool, error) { return true, nil }
	_, err = svc.Reject(context.Background(), 7, "late", reviewer)
	assertCode(t, err, models.CodeConcurrencyConflict)
}

func TestClaimService_SubmitInsertFailureKeepsBlob(t *testing.T) {
	store := storage.NewStore(afero.NewMemMapFs())
	var stored string
	repo := &claimRepoStub{
		createFn: func(_ context.Context, c *models.Claim) error {
			stored = *c.StoredFileReference
			return models.NewInternalError(errors.New("disk full"))
		},
	}
	svc := NewClaimService(repo, store, validation.DefaultAttachmentPolicy(), nil)

	in := hourly(1, 1, 1)
	in.Attachment = &AttachmentUpload{FileName: "r.pdf", Size: 3, Content: bytes.NewReader([]byte("pdf"))}
	_, err := svc.Submit(context.Background(), in, lecturer)
	assertCode(t, err, models.CodeInternal)

	require.NotEmpty(t, stored)
	ok, err := store.Exists(context.Background(), stored)
	require.NoError(t, err)
	assert.True(t, ok, "no compensation removes the orphaned blob")
}

func TestClaimService_AttachmentPolicy(t *testing.T) {
	svc := NewClaimService(nil, nil, validation.NewAttachmentPolicy(1024), nil)
	policy := svc.AttachmentPolicy()
	assert.Equal(t, int64(1024), policy.MaxBytes)
	assert.Contains(t, policy.AllowedExtensions, ".pdf")
}
