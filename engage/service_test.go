package engage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/engagement-engine/engage"
	memstore "github.com/warp/engagement-engine/engage/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// fakeClock returns a fixed instant; tests advance it explicitly.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*engage.AttendanceService, *memstore.Memory, *fakeClock) {
	t.Helper()

	mem := memstore.NewMemory()
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)}
	return engage.NewAttendanceService(mem, mem, clock), mem, clock
}

// =============================================================================
// IDEMPOTENCY TESTS
// =============================================================================

func TestCheckIn_TwicePerDay_SecondNotAccepted(t *testing.T) {
	// GIVEN: A user who checked in today
	// WHEN: They check in again on the same calendar day
	// THEN: The second attempt yields Accepted=false and no mutation

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, first.Accepted)
	assert.Equal(t, engage.CheckInReward, first.PointsAwarded)

	second, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err, "a repeat check-in is an outcome, not an error")
	assert.False(t, second.Accepted)

	// Progress untouched by the rejected attempt
	stats, err := svc.Stats(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Progress.Count)
}

func TestCheckIn_NextDay_AcceptedAgain(t *testing.T) {
	// GIVEN: A user who checked in yesterday
	// WHEN: The reference clock crosses midnight
	// THEN: A new check-in is accepted

	svc, _, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, first.Accepted)

	clock.advance(24 * time.Hour)

	third, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, third.Accepted)

	stats, err := svc.Stats(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Progress.Count)
}

func TestCheckIn_TenantsAreIndependent(t *testing.T) {
	// The same user may check in once per day in each tenant.

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err)
	b, err := svc.CheckIn(ctx, "u1", "t2")
	require.NoError(t, err)

	assert.True(t, a.Accepted)
	assert.True(t, b.Accepted)
}

// =============================================================================
// REWARD APPLICATION
// =============================================================================

func TestCheckIn_InitializesProgressAndAppliesReward(t *testing.T) {
	// First check-in starts from points=0, level=1, count=0 and lands
	// exactly on the level-1 cost: level 2, 0 points, count 1.

	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	outcome, err := svc.CheckIn(ctx, "u1", "t1")
	require.NoError(t, err)

	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.LeveledUp)
	assert.Equal(t, 2, outcome.NewLevel)

	stored, err := mem.GetProgress(ctx, "u1", "t1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.Points)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, 1, stored.Count)
}

func TestCheckIn_AccumulatesAcrossDays(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		outcome, err := svc.CheckIn(ctx, "u1", "t1")
		require.NoError(t, err)
		require.True(t, outcome.Accepted)
		clock.advance(24 * time.Hour)
	}

	stats, err := svc.Stats(ctx, "u1", "t1")
	require.NoError(t, err)
	// 500 points total: levels 1->2 (100) and 2->3 (200) consumed, 200 left.
	assert.Equal(t, 3, stats.Progress.Level)
	assert.Equal(t, 200, stats.Progress.Points)
	assert.Equal(t, 5, stats.Progress.Count)
	assert.Equal(t, 300, stats.NextLevelCost)
}

// =============================================================================
// STAT QUERY
// =============================================================================

func TestStats_NoProgress(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Stats(context.Background(), "ghost", "t1")

	assert.ErrorIs(t, err, engage.ErrNoProgress)
	assert.True(t, engage.IsClientError(err))
}

func TestStats_DerivedFields(t *testing.T) {
	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveProgress(ctx, engage.Progress{
		User: "u1", Tenant: "t1", Points: 150, Level: 3, Count: 9,
	}))

	stats, err := svc.Stats(ctx, "u1", "t1")
	require.NoError(t, err)

	assert.Equal(t, 300, stats.NextLevelCost)
	assert.Equal(t, "0.5", stats.LevelRatio.String())
}
