/*
errors.go - Centralized error types for the engagement engine

PURPOSE:
  All core error values in one place. Storage implementations translate
  their native failures into these sentinels so callers can branch with
  errors.Is/As without knowing the backend.

ERROR CATEGORIES:
  1. Expected outcomes that callers surface as information (already
     checked in, no data yet)
  2. Input rejections (schedule out of range)
  3. Collaborator failures (delivery)

Storage unavailability is not enumerated here: stores wrap their driver
errors with %w and the operation in progress fails generically.
*/
package engage

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyCheckedIn is returned by ledger writes when the
	// (user, tenant, day) row already exists. The service converts it into
	// a non-accepted outcome; it is expected behavior, not a fault.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrNoProgress is returned by stat queries for a (user, tenant) pair
	// with no accepted check-ins yet.
	ErrNoProgress = errors.New("no progress recorded")

	// ErrNotConfigured is returned when a broadcast action targets a tenant
	// that is not fully configured.
	ErrNotConfigured = errors.New("tenant not fully configured")

	// ErrInvalidSchedule is returned when an hour/minute pair is out of
	// range. Validated at the caller-facing layer, before the store.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrDeliveryFailed wraps failures of the external delivery
	// collaborator. Non-fatal: no state is rolled back and no retry is
	// attempted.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidScheduleError carries the rejected hour/minute pair.
type InvalidScheduleError struct {
	Hour   int
	Minute int
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule %02d:%02d: hour must be 0-23, minute 0-59", e.Hour, e.Minute)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// ValidateSchedule rejects out-of-range hour/minute pairs. Callers must
// run this before a schedule reaches the config store; the store does not
// re-validate.
func ValidateSchedule(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return &InvalidScheduleError{Hour: hour, Minute: minute}
	}
	return nil
}

// IsClientError reports whether the error is caused by the request rather
// than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrNoProgress) ||
		errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrInvalidSchedule)
}

// IsNotFound reports whether the error indicates missing data rather than
// a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoProgress) || errors.Is(err, ErrNotConfigured)
}
