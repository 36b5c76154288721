/*
Package engage is the core of the multi-tenant engagement engine.

PURPOSE:
  Records a once-per-day check-in per (user, tenant), converts check-ins
  into a points/level progression, answers stat and ranking queries, and
  runs the per-tenant scheduled broadcast. Everything platform-specific
  (chat connection, command parsing, permissions, message formatting) lives
  outside this package and talks to it through the interfaces in store.go
  and scheduler.go.

KEY TYPES (this file):
  - TenantConfig: per-tenant broadcast configuration; partially configured
    tenants are inert
  - Progress:     per-(user, tenant) points/level/attendance state
  - CheckInOutcome: structured result of a check-in attempt
  - RankEntry:    one row of the attendance ranking

DESIGN PRINCIPLES:
  1. Storage is the single source of truth: no in-process caches of
     progress or configuration
  2. The core never formats user-facing text; outcomes are structured and
     rendered by the caller
  3. Idempotency is enforced by the storage layer's uniqueness constraint,
     never by check-then-insert

SEE ALSO:
  - reward.go:    Points-to-level progression rules
  - service.go:   Check-in orchestration
  - scheduler.go: Per-minute broadcast scan
*/
package engage

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// UserID identifies a user within the chat platform.
type UserID string

// TenantID identifies an isolated community scope. All data is partitioned
// by tenant.
type TenantID string

// =============================================================================
// TENANT CONFIG - Broadcast configuration, mutated field by field
// =============================================================================

// TenantConfig holds the per-tenant broadcast settings. Rows are created
// lazily on the first configuration write and each field is set
// independently, so any subset may be present. Absence of a row is
// equivalent to "unconfigured".
type TenantConfig struct {
	Tenant  TenantID
	Channel *string // broadcast channel reference
	Hour    *int    // scheduled hour, 0-23
	Minute  *int    // scheduled minute, 0-59
	Message *string // broadcast text
}

// FullyConfigured reports whether all four optional fields are present.
// Only fully configured tenants ever fire a broadcast.
func (c TenantConfig) FullyConfigured() bool {
	return c.Channel != nil && c.Hour != nil && c.Minute != nil && c.Message != nil
}

// MatchesMinute reports whether the configured hour and minute equal the
// wall-clock hour and minute of t. False for partially configured tenants.
func (c TenantConfig) MatchesMinute(t time.Time) bool {
	if c.Hour == nil || c.Minute == nil {
		return false
	}
	return t.Hour() == *c.Hour && t.Minute() == *c.Minute
}

// =============================================================================
// PROGRESS - Per-(user, tenant) reward state
// =============================================================================

// Progress is the accumulated reward state for one (user, tenant) pair.
// Invariant: after any reward application, Points < Level*100 (see
// reward.go). Created on first accepted check-in, mutated only by the
// reward engine, never deleted.
type Progress struct {
	User   UserID
	Tenant TenantID
	Points int // always >= 0 and < NextLevelCost() after an award
	Level  int // starts at 1, never decreases
	Count  int // lifetime accepted check-ins
}

// NewProgress is the initial state for a (user, tenant) pair.
func NewProgress(user UserID, tenant TenantID) Progress {
	return Progress{User: user, Tenant: tenant, Points: 0, Level: 1, Count: 0}
}

// NextLevelCost is the points required to reach the next level from the
// current one.
func (p Progress) NextLevelCost() int {
	return p.Level * levelCostFactor
}

// LevelRatio is Points divided by NextLevelCost, the fraction of the way
// to the next level. Exposed for stat rendering.
func (p Progress) LevelRatio() decimal.Decimal {
	cost := p.NextLevelCost()
	if cost == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(p.Points)).
		Div(decimal.NewFromInt(int64(cost))).
		Round(4)
}

// =============================================================================
// OUTCOMES
// =============================================================================

// CheckInOutcome is the structured result of a check-in attempt.
// Accepted=false means the user had already checked in that day; this is
// an informational outcome, not an error.
type CheckInOutcome struct {
	Accepted      bool
	LeveledUp     bool
	NewLevel      int
	PointsAwarded int
}

// StatSummary is the read model behind the stat query.
type StatSummary struct {
	Progress      Progress
	NextLevelCost int
	LevelRatio    decimal.Decimal
}

// RankEntry is one row of the per-tenant attendance ranking.
type RankEntry struct {
	User  UserID
	Count int
}
