package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/engagement-engine/engage"
	"github.com/warp/engagement-engine/engage/store"
)

func TestMemory_RecordCheckIn_DuplicateRejected(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.RecordCheckIn(ctx, "u1", "t1", "2026-03-10"))
	err := mem.RecordCheckIn(ctx, "u1", "t1", "2026-03-10")
	assert.ErrorIs(t, err, engage.ErrAlreadyCheckedIn)

	// Different day, tenant, or user are all distinct facts.
	assert.NoError(t, mem.RecordCheckIn(ctx, "u1", "t1", "2026-03-11"))
	assert.NoError(t, mem.RecordCheckIn(ctx, "u1", "t2", "2026-03-10"))
	assert.NoError(t, mem.RecordCheckIn(ctx, "u2", "t1", "2026-03-10"))

	ok, err := mem.HasCheckedIn(ctx, "u1", "t1", "2026-03-10")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_ConfigFieldsAreIndependent(t *testing.T) {
	// Setting the schedule must not clear a previously set message or
	// channel, and vice versa.

	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SetMessage(ctx, "t1", "hello"))
	require.NoError(t, mem.SetSchedule(ctx, "t1", 9, 30))
	require.NoError(t, mem.SetChannel(ctx, "t1", "chan-1"))
	require.NoError(t, mem.SetSchedule(ctx, "t1", 10, 0))

	cfg, err := mem.GetConfig(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.FullyConfigured())
	assert.Equal(t, "hello", *cfg.Message)
	assert.Equal(t, "chan-1", *cfg.Channel)
	assert.Equal(t, 10, *cfg.Hour)
	assert.Equal(t, 0, *cfg.Minute)
}

func TestMemory_GetConfig_AbsentTenant(t *testing.T) {
	mem := store.NewMemory()

	cfg, err := mem.GetConfig(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestMemory_TopByAttendance_OrderAndTieBreak(t *testing.T) {
	// GIVEN: A(5), B(5), C(2) in t1, plus an unrelated tenant
	// WHEN: Top 2 is queried twice
	// THEN: Both calls return [A, B] - count descending, user id ascending

	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveProgress(ctx, engage.Progress{User: "B", Tenant: "t1", Count: 5, Level: 1}))
	require.NoError(t, mem.SaveProgress(ctx, engage.Progress{User: "A", Tenant: "t1", Count: 5, Level: 1}))
	require.NoError(t, mem.SaveProgress(ctx, engage.Progress{User: "C", Tenant: "t1", Count: 2, Level: 1}))
	require.NoError(t, mem.SaveProgress(ctx, engage.Progress{User: "Z", Tenant: "t2", Count: 9, Level: 1}))

	for i := 0; i < 2; i++ {
		entries, err := mem.TopByAttendance(ctx, "t1", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, engage.UserID("A"), entries[0].User)
		assert.Equal(t, engage.UserID("B"), entries[1].User)
	}
}
