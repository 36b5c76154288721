/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Check-in endpoint outcomes
- Stat and ranking queries
- Configuration writes, validation, and authorization
- Manual broadcast test
*/
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/engagement-engine/api"
	"github.com/warp/engagement-engine/engage"
	memstore "github.com/warp/engagement-engine/engage/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type stubDeliverer struct {
	calls []string
	fail  bool
}

func (d *stubDeliverer) Deliver(_ context.Context, channel, text string) error {
	if d.fail {
		return errors.New("platform unavailable")
	}
	d.calls = append(d.calls, channel+":"+text)
	return nil
}

type testServer struct {
	router    http.Handler
	store     *memstore.Memory
	deliverer *stubDeliverer
}

func newTestServer(t *testing.T, auth api.Authorizer) *testServer {
	t.Helper()

	mem := memstore.NewMemory()
	clock := &fixedClock{now: time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)}
	deliverer := &stubDeliverer{}

	h := api.NewHandler(
		engage.NewAttendanceService(mem, mem, clock),
		engage.NewRankingQuery(mem),
		mem,
		deliverer,
		auth,
		nil,
	)
	return &testServer{router: api.NewRouter(h), store: mem, deliverer: deliverer}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "admin-1")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// CHECK-IN
// =============================================================================

func TestCheckInEndpoint_AcceptedThenAlready(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/tenants/t1/checkin", `{"user":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.CheckInResponse](t, rec)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, engage.CheckInReward, resp.PointsAwarded)
	assert.True(t, resp.LeveledUp) // first check-in reaches the level-1 cost

	rec = ts.do(t, http.MethodPost, "/api/tenants/t1/checkin", `{"user":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[api.CheckInResponse](t, rec)
	assert.Equal(t, "already_checked_in", resp.Status)
	assert.Zero(t, resp.PointsAwarded)
}

func TestCheckInEndpoint_UserFallsBackToHeader(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/tenants/t1/checkin", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", decode[api.CheckInResponse](t, rec).Status)
}

func TestCheckInEndpoint_MissingUser(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tenants/t1/checkin", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req) // no X-User-ID header

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STATS AND RANKING
// =============================================================================

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/tenants/t1/users/u1/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no data before the first check-in")

	ts.do(t, http.MethodPost, "/api/tenants/t1/checkin", `{"user":"u1"}`)

	rec = ts.do(t, http.MethodGet, "/api/tenants/t1/users/u1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[api.StatsResponse](t, rec)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 0, stats.Points)
	assert.Equal(t, 200, stats.NextLevelCost)
	assert.Equal(t, 1, stats.AttendanceCount)
}

func TestRankingEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	require.NoError(t, ts.store.SaveProgress(ctx, engage.Progress{User: "A", Tenant: "t1", Level: 1, Count: 5}))
	require.NoError(t, ts.store.SaveProgress(ctx, engage.Progress{User: "B", Tenant: "t1", Level: 1, Count: 5}))
	require.NoError(t, ts.store.SaveProgress(ctx, engage.Progress{User: "C", Tenant: "t1", Level: 1, Count: 2}))

	rec := ts.do(t, http.MethodGet, "/api/tenants/t1/ranking?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.RankingResponse](t, rec)

	require.Len(t, resp.Entries, 2)
	assert.Equal(t, api.RankEntryDTO{Rank: 1, User: "A", Count: 5}, resp.Entries[0])
	assert.Equal(t, api.RankEntryDTO{Rank: 2, User: "B", Count: 5}, resp.Entries[1])
}

func TestRankingEndpoint_InvalidLimit(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/tenants/t1/ranking?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestConfigEndpoints_IndependentWrites(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/tenants/t1/config/schedule", `{"hour":9,"minute":30}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/tenants/t1/config/message", `{"message":"Good morning"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/tenants/t1/config/channel", `{"channel":"chan-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[api.ConfigDTO](t, rec)

	assert.True(t, cfg.FullyConfigured)
	require.NotNil(t, cfg.Message)
	assert.Equal(t, "Good morning", *cfg.Message)
	require.NotNil(t, cfg.Hour)
	assert.Equal(t, 9, *cfg.Hour)
}

func TestSetSchedule_RangeValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, body := range []string{
		`{"hour":24,"minute":0}`,
		`{"hour":-1,"minute":0}`,
		`{"hour":9,"minute":60}`,
		`{"hour":9,"minute":-5}`,
	} {
		rec := ts.do(t, http.MethodPut, "/api/tenants/t1/config/schedule", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s must be rejected", body)
	}

	// Rejected writes must not create the row
	rec := ts.do(t, http.MethodGet, "/api/tenants/t1/config/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigWrites_AuthorizerDenies(t *testing.T) {
	denyAll := api.AuthorizerFunc(func(*http.Request, engage.UserID, engage.TenantID) bool { return false })
	ts := newTestServer(t, denyAll)

	rec := ts.do(t, http.MethodPut, "/api/tenants/t1/config/message", `{"message":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Reads are not gated
	rec = ts.do(t, http.MethodGet, "/api/tenants/t1/ranking", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// BROADCAST TEST
// =============================================================================

func TestBroadcastTest(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/tenants/t1/broadcast/test", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "unconfigured tenant has nothing to send")

	ctx := context.Background()
	require.NoError(t, ts.store.SetChannel(ctx, "t1", "chan-1"))
	require.NoError(t, ts.store.SetSchedule(ctx, "t1", 9, 30))
	require.NoError(t, ts.store.SetMessage(ctx, "t1", "Good morning"))

	rec = ts.do(t, http.MethodPost, "/api/tenants/t1/broadcast/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.BroadcastTestResponse](t, rec)
	assert.True(t, resp.Delivered)
	assert.Equal(t, []string{"chan-1:Good morning"}, ts.deliverer.calls)
}

func TestBroadcastTest_DeliveryFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	require.NoError(t, ts.store.SetChannel(ctx, "t1", "chan-1"))
	require.NoError(t, ts.store.SetSchedule(ctx, "t1", 9, 30))
	require.NoError(t, ts.store.SetMessage(ctx, "t1", "hello"))

	ts.deliverer.fail = true
	rec := ts.do(t, http.MethodPost, "/api/tenants/t1/broadcast/test", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "delivery failed", body.Error)
}

// =============================================================================
// MULTI-DAY FLOW (handler-level smoke)
// =============================================================================

func TestCheckInEndpoint_MultipleUsersRanked(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, user := range []string{"u1", "u2", "u3"} {
		rec := ts.do(t, http.MethodPost, "/api/tenants/t1/checkin", fmt.Sprintf(`{"user":%q}`, user))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/tenants/t1/ranking", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.RankingResponse](t, rec)
	assert.Len(t, resp.Entries, 3)
}
