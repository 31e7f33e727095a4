package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewStoreError("batch patch failed", cause).WithStore("entities").WithOperation("batch_patch")

	want := "store error [store=entities, op=batch_patch]: batch patch failed: connection reset"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !err.IsRetryable() {
		t.Error("store errors should be retryable by default")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("retryable store error should match ErrStoreUnavailable")
	}

	var storeErr *StoreError
	wrapped := Wrap(err, "next turn")
	if !As(wrapped, &storeErr) {
		t.Fatal("As should find the StoreError through Wrap")
	}
	if storeErr.Operation != "batch_patch" {
		t.Errorf("Operation = %q, want %q", storeErr.Operation, "batch_patch")
	}
}

func TestStoreError_NotRetryable(t *testing.T) {
	err := NewStoreError("decode", nil).WithRetryable(false)
	if IsRetryable(err) {
		t.Error("IsRetryable() = true, want false")
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Error("non-retryable store error must not match ErrStoreUnavailable")
	}
}

func TestRingError_InheritsRetryable(t *testing.T) {
	cause := NewStoreError("add", nil)
	err := NewRingError("create rings", cause).WithOwner("p-1").WithVariant("normal")

	if !err.IsRetryable() {
		t.Error("ring error caused by a store error should be retryable")
	}
	want := "ring error [owner=p-1, variant=normal]: create rings: store error: add"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("participant", "goblin-1")
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Error("participant NotFoundError should match ErrParticipantNotFound")
	}
	if err.Error() != `participant "goblin-1" not found` {
		t.Errorf("unexpected message %q", err.Error())
	}
	if errors.Is(NewNotFoundError("ring", "r-1"), ErrParticipantNotFound) {
		t.Error("ring NotFoundError must not match ErrParticipantNotFound")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("must be positive").WithField("grid.units_per_cell").WithValue(0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	want := "validation error [field=grid.units_per_cell, value=0]: must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("confirm ring deletion", 500*time.Millisecond).WithCause(ErrDeletionUnconfirmed)
	if !errors.Is(err, ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	if !errors.Is(err, ErrDeletionUnconfirmed) {
		t.Error("TimeoutError should match its cause")
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrStale, true},
		{"wrapped", Wrapf(ErrStale, "reconcile %s", "normal"), true},
		{"other", ErrTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.err); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v", got)
	}
	if got := GetSeverity(Wrap(ErrStale, "pass")); got != SeverityDebug {
		t.Errorf("stale severity = %v, want debug", got)
	}
	if got := GetSeverity(NewValidationError("x")); got != SeverityWarning {
		t.Errorf("validation severity = %v, want warning", got)
	}
	if got := GetSeverity(New("plain")); got != SeverityError {
		t.Errorf("plain severity = %v, want error", got)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
