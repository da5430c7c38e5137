// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus defines lifecycle states for lecturer claims.
type ClaimStatus string

const (
	// ClaimStatusPending indicates the claim is awaiting review.
	ClaimStatusPending ClaimStatus = "Pending"
	// ClaimStatusApproved indicates the claim was accepted by a reviewer.
	ClaimStatusApproved ClaimStatus = "Approved"
	// ClaimStatusRejected indicates the claim was denied by a reviewer.
	ClaimStatusRejected ClaimStatus = "Rejected"
)

// IsTerminal reports whether no further review transition is expected.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// Valid reports whether s is a known status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// HistoryStatuses are the statuses listed by claim history views.
var HistoryStatuses = []ClaimStatus{ClaimStatusApproved, ClaimStatusRejected}

// Claim is a lecturer's hourly-work reimbursement request.
type Claim struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	LecturerID        string          `gorm:"size:64" json:"lecturer_id"`
	SubmitterIdentity string          `gorm:"size:254;not null;index" json:"submitter_identity"`
	HoursWorked       decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"hours_worked"`
	HourlyRate        decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"hourly_rate"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"total_amount"`
	Status            ClaimStatus     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	SubmittedDate     time.Time       `gorm:"not null" json:"submitted_date"`

	DocumentType        string  `gorm:"size:120" json:"document_type"`
	OriginalFileName    *string `gorm:"size:255" json:"original_file_name,omitempty"`
	StoredFileReference *string `gorm:"size:255" json:"stored_file_reference,omitempty"`

	ApprovalBy     *string    `gorm:"size:254" json:"approval_by,omitempty"`
	ApprovalDate   *time.Time `json:"approval_date,omitempty"`
	ApprovalStatus string     `gorm:"size:64" json:"approval_status"`
	Notes          string     `gorm:"type:text" json:"notes"`
	Comments       string     `gorm:"type:text" json:"comments"`

	// Version is bumped on every update and guards against stale writes.
	Version   uint      `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAttachment reports whether a document was stored with the claim.
func (c *Claim) HasAttachment() bool {
	return c.StoredFileReference != nil && *c.StoredFileReference != ""
}
