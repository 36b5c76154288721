/*
store.go - Persistence interfaces for the engagement engine

PURPOSE:
  Defines the boundary between core logic and the database. The engine
  holds no process-wide storage singleton; implementations are injected.

KEY INTERFACES:
  AttendanceLedger: durable (user, tenant, day) check-in facts
  ProgressStore:    per-(user, tenant) reward state
  ConfigStore:      per-tenant broadcast configuration
  RankingStore:     read-only attendance-count aggregation

IDEMPOTENCY CONTRACT:
  RecordCheckIn is the single atomicity boundary in the system. The
  uniqueness of (user, tenant, day) MUST be enforced by the storage
  engine's own constraint (primary key / unique index), not by an
  application-level check-then-insert: two concurrent calls for the same
  key race, exactly one wins, the other observes ErrAlreadyCheckedIn.

  Ledger rows are append-only and never deleted; they are the history
  behind counts and ranking.

Everything else is plain read-modify-write scoped to a single key; the
domain tolerates last-writer-wins on configuration fields.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engage/store: in-memory store for tests and development
*/
package engage

import "context"

// AttendanceLedger is the source of idempotency truth for check-ins.
type AttendanceLedger interface {
	// HasCheckedIn reports whether a check-in fact exists. Read-only.
	HasCheckedIn(ctx context.Context, user UserID, tenant TenantID, day Day) (bool, error)

	// RecordCheckIn inserts the check-in fact for (user, tenant, day).
	// Returns ErrAlreadyCheckedIn if the fact already exists. Atomic with
	// respect to the uniqueness invariant.
	RecordCheckIn(ctx context.Context, user UserID, tenant TenantID, day Day) error
}

// ProgressStore persists per-(user, tenant) reward state.
type ProgressStore interface {
	// GetProgress returns the stored progress, or nil when the pair has
	// never checked in.
	GetProgress(ctx context.Context, user UserID, tenant TenantID) (*Progress, error)

	// SaveProgress upserts the full progress row.
	SaveProgress(ctx context.Context, p Progress) error
}

// ConfigStore persists per-tenant broadcast configuration. Each setter
// creates the tenant's row if absent and updates only its own field(s);
// previously set fields are preserved. The scheduler only reads.
type ConfigStore interface {
	// GetConfig returns the tenant's configuration, or nil when no row
	// exists (equivalent to "unconfigured").
	GetConfig(ctx context.Context, tenant TenantID) (*TenantConfig, error)

	SetChannel(ctx context.Context, tenant TenantID, channel string) error

	// SetSchedule stores an hour/minute pair. Range validation is the
	// caller's job (ValidateSchedule); the store trusts its input.
	SetSchedule(ctx context.Context, tenant TenantID, hour, minute int) error

	SetMessage(ctx context.Context, tenant TenantID, text string) error

	// ListConfigs returns every tenant's configuration for the scheduler
	// scan, including partially configured rows.
	ListConfigs(ctx context.Context) ([]TenantConfig, error)
}

// RankingStore aggregates lifetime attendance counts per tenant.
type RankingStore interface {
	// TopByAttendance returns up to limit entries, descending by count,
	// ties broken by user id ascending so repeated calls with unchanged
	// data return the same order.
	TopByAttendance(ctx context.Context, tenant TenantID, limit int) ([]RankEntry, error)
}

// Store is the full persistence surface, implemented by both backends.
type Store interface {
	AttendanceLedger
	ProgressStore
	ConfigStore
	RankingStore
}
