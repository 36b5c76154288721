// Package store provides an in-memory engage.Store for tests and
// development. The SQLite backend in store/sqlite is the production
// implementation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/engagement-engine/engage"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	attendance map[attendanceKey]struct{}
	progress   map[progressKey]engage.Progress
	configs    map[engage.TenantID]engage.TenantConfig
}

type attendanceKey struct {
	User   engage.UserID
	Tenant engage.TenantID
	Day    engage.Day
}

type progressKey struct {
	User   engage.UserID
	Tenant engage.TenantID
}

func NewMemory() *Memory {
	return &Memory{
		attendance: make(map[attendanceKey]struct{}),
		progress:   make(map[progressKey]engage.Progress),
		configs:    make(map[engage.TenantID]engage.TenantConfig),
	}
}

// =============================================================================
// ATTENDANCE LEDGER
// =============================================================================

func (m *Memory) HasCheckedIn(_ context.Context, user engage.UserID, tenant engage.TenantID, day engage.Day) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.attendance[attendanceKey{User: user, Tenant: tenant, Day: day}]
	return ok, nil
}

// RecordCheckIn inserts the fact under the write lock, so the
// check-and-insert below is atomic just like a database constraint.
func (m *Memory) RecordCheckIn(_ context.Context, user engage.UserID, tenant engage.TenantID, day engage.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := attendanceKey{User: user, Tenant: tenant, Day: day}
	if _, ok := m.attendance[k]; ok {
		return engage.ErrAlreadyCheckedIn
	}
	m.attendance[k] = struct{}{}
	return nil
}

// =============================================================================
// PROGRESS STORE
// =============================================================================

func (m *Memory) GetProgress(_ context.Context, user engage.UserID, tenant engage.TenantID) (*engage.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[progressKey{User: user, Tenant: tenant}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) SaveProgress(_ context.Context, p engage.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.progress[progressKey{User: p.User, Tenant: p.Tenant}] = p
	return nil
}

// =============================================================================
// CONFIG STORE
// =============================================================================

func (m *Memory) GetConfig(_ context.Context, tenant engage.TenantID) (*engage.TenantConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[tenant]
	if !ok {
		return nil, nil
	}
	out := cloneConfig(cfg)
	return &out, nil
}

func (m *Memory) SetChannel(_ context.Context, tenant engage.TenantID, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.configs[tenant]
	cfg.Tenant = tenant
	cfg.Channel = &channel
	m.configs[tenant] = cfg
	return nil
}

func (m *Memory) SetSchedule(_ context.Context, tenant engage.TenantID, hour, minute int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.configs[tenant]
	cfg.Tenant = tenant
	cfg.Hour = &hour
	cfg.Minute = &minute
	m.configs[tenant] = cfg
	return nil
}

func (m *Memory) SetMessage(_ context.Context, tenant engage.TenantID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.configs[tenant]
	cfg.Tenant = tenant
	cfg.Message = &text
	m.configs[tenant] = cfg
	return nil
}

func (m *Memory) ListConfigs(_ context.Context) ([]engage.TenantConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engage.TenantConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cloneConfig(cfg))
	}
	// Stable scan order keeps logs and tests deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].Tenant < out[j].Tenant })
	return out, nil
}

// =============================================================================
// RANKING STORE
// =============================================================================

func (m *Memory) TopByAttendance(_ context.Context, tenant engage.TenantID, limit int) ([]engage.RankEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []engage.RankEntry
	for k, p := range m.progress {
		if k.Tenant != tenant || p.Count == 0 {
			continue
		}
		entries = append(entries, engage.RankEntry{User: k.User, Count: p.Count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].User < entries[j].User
	})

	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func cloneConfig(cfg engage.TenantConfig) engage.TenantConfig {
	out := engage.TenantConfig{Tenant: cfg.Tenant}
	if cfg.Channel != nil {
		v := *cfg.Channel
		out.Channel = &v
	}
	if cfg.Hour != nil {
		v := *cfg.Hour
		out.Hour = &v
	}
	if cfg.Minute != nil {
		v := *cfg.Minute
		out.Minute = &v
	}
	if cfg.Message != nil {
		v := *cfg.Message
		out.Message = &v
	}
	return out
}
