package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultAttachmentMaxBytes is the largest accepted claim document (5 MiB).
const DefaultAttachmentMaxBytes int64 = 5 * 1024 * 1024

// DefaultAttachmentExtensions are the accepted claim document types.
var DefaultAttachmentExtensions = []string{".pdf", ".docx", ".xlsx", ".png", ".jpeg", ".jpg"}

// Attachment rejection reasons.
const (
	ReasonAttachmentTooLarge        = "AttachmentTooLarge"
	ReasonUnsupportedAttachmentType = "UnsupportedAttachmentType"
)

// AttachmentError explains why an upload was refused.
type AttachmentError struct {
	Reason  string
	Message string
}

func (e *AttachmentError) Error() string {
	return e.Message
}

// AttachmentPolicy bounds claim document uploads.
type AttachmentPolicy struct {
	MaxBytes          int64    `json:"max_bytes"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// DefaultAttachmentPolicy returns the 5 MiB policy over the standard document types.
func DefaultAttachmentPolicy() AttachmentPolicy {
	return NewAttachmentPolicy(DefaultAttachmentMaxBytes)
}

// NewAttachmentPolicy returns the standard document types with a custom size limit.
func NewAttachmentPolicy(maxBytes int64) AttachmentPolicy {
	exts := make([]string, len(DefaultAttachmentExtensions))
	copy(exts, DefaultAttachmentExtensions)
	return AttachmentPolicy{MaxBytes: maxBytes, AllowedExtensions: exts}
}

// Extension returns the lowercased extension of name including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Validate checks the declared size first, then the extension.
func (p AttachmentPolicy) Validate(fileName string, size int64) error {
	if size > p.MaxBytes {
		return &AttachmentError{
			Reason:  ReasonAttachmentTooLarge,
			Message: fmt.Sprintf("file size exceeds the %d MB limit", p.MaxBytes/(1024*1024)),
		}
	}

	ext := Extension(fileName)
	for _, allowed := range p.AllowedExtensions {
		if ext != "" && ext == allowed {
			return nil
		}
	}
	return &AttachmentError{
		Reason:  ReasonUnsupportedAttachmentType,
		Message: fmt.Sprintf("only %s files are allowed", strings.Join(p.AllowedExtensions, ", ")),
	}
}
