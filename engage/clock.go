/*
clock.go - Reference clock and calendar-day computation

PURPOSE:
  Every correctness property in this system is defined relative to a single
  reference timezone: the calendar day used for check-in idempotency and the
  hour/minute matched by the broadcast scheduler. All tenants share one
  reference clock; there is no per-tenant timezone support.

WHY AN INTERFACE?
  Check-in idempotency ("once per day") and scheduler firing ("now matches
  the configured minute") cannot be tested against the wall clock. Clock is
  injected everywhere time is read, and tests substitute a fixed clock.

SEE ALSO:
  - service.go: Computes the check-in day from the clock
  - scheduler.go: Matches configured hour/minute against the clock
*/
package engage

import "time"

// DefaultTimezone is the reference timezone when none is configured.
const DefaultTimezone = "Asia/Seoul"

// Clock supplies the current instant in the reference timezone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed reference location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a clock pinned to loc. A nil location falls back
// to the default reference timezone.
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// =============================================================================
// DAY - Calendar day in the reference timezone
// =============================================================================

// Day is a calendar day with no time component, formatted 2006-01-02.
// It is the idempotency key component for check-ins: the attendance ledger
// is keyed by (user, tenant, day).
type Day string

// DayOf truncates an instant to its calendar day. The instant is expected
// to already carry the reference location (Clock guarantees this).
func DayOf(t time.Time) Day {
	return Day(t.Format("2006-01-02"))
}

func (d Day) String() string { return string(d) }
