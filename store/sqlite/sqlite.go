/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engage.Store (attendance ledger, progress store, config
  store, ranking store) on SQLite. The same patterns apply to PostgreSQL;
  only minor SQL dialect differences.

IDEMPOTENCY ENFORCEMENT:
  The attendance table's composite primary key (user_id, tenant_id, day)
  is the sole idempotency guard for check-ins. RecordCheckIn is a bare
  INSERT: when two concurrent calls race for the same key, SQLite lets
  exactly one through and the other surfaces engage.ErrAlreadyCheckedIn.
  There is deliberately NO check-then-insert here - that would reopen the
  race window the constraint closes.

KEY TABLES:
  tenant_config: one row per configured tenant; columns nullable so each
                 field can be set independently
  attendance:    append-only (user, tenant, day) facts; never deleted
  user_progress: one row per (user, tenant); upserted by the check-in path

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of a single connection. With
  PostgreSQL, database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/engage.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - engage/store.go: Interface definitions and contracts
  - engage/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/engagement-engine/engage"
)

// Store implements engage.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Per-tenant broadcast configuration. All four payload columns are
	-- nullable: fields are set one at a time and a partially configured
	-- tenant is inert.
	CREATE TABLE IF NOT EXISTS tenant_config (
		tenant_id TEXT PRIMARY KEY,
		channel_id TEXT,
		hour INTEGER,
		minute INTEGER,
		message TEXT,
		updated_at TEXT NOT NULL
	);

	-- Check-in facts, append-only. The composite primary key IS the
	-- once-per-day idempotency guard.
	CREATE TABLE IF NOT EXISTS attendance (
		user_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		day TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, tenant_id, day)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_tenant_day
		ON attendance(tenant_id, day);

	-- Reward state, one row per (user, tenant).
	CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		attendance_count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, tenant_id)
	);

	-- Ranking scan (hot path for the rank query)
	CREATE INDEX IF NOT EXISTS idx_progress_tenant_count
		ON user_progress(tenant_id, attendance_count DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE LEDGER (engage.AttendanceLedger interface)
// =============================================================================

// HasCheckedIn reports whether a check-in fact exists for the day.
func (s *Store) HasCheckedIn(ctx context.Context, user engage.UserID, tenant engage.TenantID, day engage.Day) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance WHERE user_id = ? AND tenant_id = ? AND day = ?",
		string(user), string(tenant), string(day),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query attendance: %w", err)
	}
	return count > 0, nil
}

// RecordCheckIn inserts the check-in fact. The primary key rejects
// duplicates; that rejection is the idempotency outcome, not a failure.
func (s *Store) RecordCheckIn(ctx context.Context, user engage.UserID, tenant engage.TenantID, day engage.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attendance (user_id, tenant_id, day, created_at) VALUES (?, ?, ?, ?)",
		string(user), string(tenant), string(day), now(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engage.ErrAlreadyCheckedIn
		}
		return fmt.Errorf("failed to record check-in: %w", err)
	}
	return nil
}

// =============================================================================
// PROGRESS STORE (engage.ProgressStore interface)
// =============================================================================

// GetProgress returns the stored progress, or nil when the pair has never
// checked in.
func (s *Store) GetProgress(ctx context.Context, user engage.UserID, tenant engage.TenantID) (*engage.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT points, level, attendance_count
		FROM user_progress
		WHERE user_id = ? AND tenant_id = ?
	`, string(user), string(tenant))

	p := engage.Progress{User: user, Tenant: tenant}
	err := row.Scan(&p.Points, &p.Level, &p.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}
	return &p, nil
}

// SaveProgress upserts the full progress row.
func (s *Store) SaveProgress(ctx context.Context, p engage.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO user_progress (user_id, tenant_id, points, level, attendance_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, tenant_id) DO UPDATE SET
			points = excluded.points,
			level = excluded.level,
			attendance_count = excluded.attendance_count,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(p.User), string(p.Tenant), p.Points, p.Level, p.Count, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// =============================================================================
// CONFIG STORE (engage.ConfigStore interface)
// =============================================================================

// GetConfig returns the tenant's configuration, or nil when no row exists.
func (s *Store) GetConfig(ctx context.Context, tenant engage.TenantID) (*engage.TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, channel_id, hour, minute, message
		FROM tenant_config
		WHERE tenant_id = ?
	`, string(tenant))

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetChannel creates the tenant row if absent and updates only the
// channel column.
func (s *Store) SetChannel(ctx context.Context, tenant engage.TenantID, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenant_config (tenant_id, channel_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(tenant), channel, now()); err != nil {
		return fmt.Errorf("failed to set channel: %w", err)
	}
	return nil
}

// SetSchedule creates the tenant row if absent and updates only the hour
// and minute columns. Range validation happens before the store.
func (s *Store) SetSchedule(ctx context.Context, tenant engage.TenantID, hour, minute int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenant_config (tenant_id, hour, minute, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			hour = excluded.hour,
			minute = excluded.minute,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(tenant), hour, minute, now()); err != nil {
		return fmt.Errorf("failed to set schedule: %w", err)
	}
	return nil
}

// SetMessage creates the tenant row if absent and updates only the
// message column.
func (s *Store) SetMessage(ctx context.Context, tenant engage.TenantID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tenant_config (tenant_id, message, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			message = excluded.message,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(tenant), text, now()); err != nil {
		return fmt.Errorf("failed to set message: %w", err)
	}
	return nil
}

// ListConfigs returns every tenant's configuration for the scheduler
// scan, partially configured rows included.
func (s *Store) ListConfigs(ctx context.Context) ([]engage.TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, channel_id, hour, minute, message
		FROM tenant_config
		ORDER BY tenant_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant configs: %w", err)
	}
	defer rows.Close()

	var configs []engage.TenantConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// =============================================================================
// RANKING STORE (engage.RankingStore interface)
// =============================================================================

// TopByAttendance ranks users by lifetime attendance count. The user_id
// tie-break keeps repeated calls deterministic.
func (s *Store) TopByAttendance(ctx context.Context, tenant engage.TenantID, limit int) ([]engage.RankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, attendance_count
		FROM user_progress
		WHERE tenant_id = ? AND attendance_count > 0
		ORDER BY attendance_count DESC, user_id ASC
		LIMIT ?
	`, string(tenant), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}
	defer rows.Close()

	var entries []engage.RankEntry
	for rows.Next() {
		var e engage.RankEntry
		var userID string
		if err := rows.Scan(&userID, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		e.User = engage.UserID(userID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (engage.TenantConfig, error) {
	var (
		cfg      engage.TenantConfig
		tenantID string
		channel  sql.NullString
		hour     sql.NullInt64
		minute   sql.NullInt64
		message  sql.NullString
	)

	if err := row.Scan(&tenantID, &channel, &hour, &minute, &message); err != nil {
		if err == sql.ErrNoRows {
			return cfg, err
		}
		return cfg, fmt.Errorf("failed to scan tenant config: %w", err)
	}

	cfg.Tenant = engage.TenantID(tenantID)
	if channel.Valid {
		v := channel.String
		cfg.Channel = &v
	}
	if hour.Valid {
		v := int(hour.Int64)
		cfg.Hour = &v
	}
	if minute.Valid {
		v := int(minute.Int64)
		cfg.Minute = &v
	}
	if message.Valid {
		v := message.String
		cfg.Message = &v
	}
	return cfg, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
