// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"claimpro/internal/models"
	"claimpro/internal/observability"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// startQuery opens a repository span and a latency timer; finish ends both
// and records err on the span.
func startQuery(ctx context.Context, table, method string) (context.Context, func(err error)) {
	done := observability.TrackQuery(method, table)
	ctx, span := observability.StartRepositorySpan(ctx, table, method)
	return ctx, func(err error) {
		finishSpan(span, err)
		done()
	}
}

func finishSpan(span trace.Span, err error) {
	var appErr *models.AppError
	if err != nil && !(errors.As(err, &appErr) && appErr.Code == models.CodeNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
