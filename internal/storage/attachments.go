// Package storage persists claim attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"claimpro/internal/validation"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// PublicPrefix is the URL path under which stored attachments are served.
const PublicPrefix = "/images"

// AttachmentStore saves uploaded documents under server-generated names.
type AttachmentStore interface {
	// Save copies r to a new blob and returns its public reference
	// ("/images/{uuid}{ext}"). The extension is taken from originalName.
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// LocalStore writes attachments to a directory served as static assets.
type LocalStore struct {
	fs      afero.Fs
	newName func() string
}

// NewLocalStore stores attachments under dir on the OS filesystem.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewStore stores attachments at the root of fsys.
func NewStore(fsys afero.Fs) *LocalStore {
	return &LocalStore{fs: fsys, newName: uuid.NewString}
}

func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := s.newName() + validation.Extension(originalName)
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close attachment: %w", err)
	}

	return path.Join(PublicPrefix, name), nil
}

func (s *LocalStore) Exists(_ context.Context, ref string) (bool, error) {
	name, err := nameFromRef(ref)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, name)
}

var errBadReference = errors.New("not an attachment reference")

func nameFromRef(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, PublicPrefix+"/")
	if !ok || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", errBadReference
	}
	return name, nil
}
