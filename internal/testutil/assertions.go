package testutil

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	apperrors "smartspend/internal/errors"
)

// AssertAppError fails unless err matches want by code and carries want's
// HTTP status. Wrapped and re-messaged copies of a sentinel both match.
func AssertAppError(t *testing.T, err error, want *apperrors.AppError) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil", want.Code)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError %s, got %T: %v", want.Code, err, err)
	}
	if !errors.Is(appErr, want) {
		t.Errorf("expected error code %q, got %q (message: %s)", want.Code, appErr.Code, appErr.Message)
		return
	}
	if appErr.StatusCode != want.StatusCode {
		t.Errorf("%s: expected status %d, got %d", want.Code, want.StatusCode, appErr.StatusCode)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertRowCount fails unless model's table holds want rows matching the
// optional condition, soft-deleted rows excluded.
func AssertRowCount(t *testing.T, db *gorm.DB, model interface{}, want int64, conds ...interface{}) {
	t.Helper()

	q := db.Model(model)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	var got int64
	if err := q.Count(&got).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if got != want {
		t.Errorf("expected %d rows, got %d", want, got)
	}
}
