/*
handlers.go - HTTP API handlers for the engagement engine

PURPOSE:
  Exposes the engine via REST. This is the "external request handler"
  collaborator: it normalizes requests into (user, tenant, action,
  arguments), checks reconfiguration authorization through the injected
  Authorizer, and renders the core's structured outcomes. The core itself
  never sees HTTP and never formats user-facing strings.

ENDPOINTS:
  POST /api/tenants/{tenant}/checkin             Record today's check-in
  GET  /api/tenants/{tenant}/users/{user}/stats  Stat query
  GET  /api/tenants/{tenant}/ranking             Attendance ranking
  GET  /api/tenants/{tenant}/config              Read configuration
  PUT  /api/tenants/{tenant}/config/channel      Set broadcast channel
  PUT  /api/tenants/{tenant}/config/schedule     Set broadcast time
  PUT  /api/tenants/{tenant}/config/message      Set broadcast text
  POST /api/tenants/{tenant}/broadcast/test      Fire the broadcast once

IDENTITY:
  The acting user is carried in the X-User-ID header (set by the platform
  gateway). The core trusts the Authorizer's boolean and performs no
  authorization logic of its own.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 403: Authorizer denied a configuration write
  - 404: No data (unknown progress, unconfigured tenant)
  - 502: Delivery collaborator failure (reported, nothing rolled back)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/engagement-engine/engage"
)

// userHeader carries the acting user's identifier, set by the platform
// gateway in front of this service.
const userHeader = "X-User-ID"

// Authorizer is the external identity/permission collaborator: may this
// user reconfigure this tenant? The engine trusts the boolean.
type Authorizer interface {
	CanConfigure(r *http.Request, user engage.UserID, tenant engage.TenantID) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(r *http.Request, user engage.UserID, tenant engage.TenantID) bool

func (f AuthorizerFunc) CanConfigure(r *http.Request, user engage.UserID, tenant engage.TenantID) bool {
	return f(r, user, tenant)
}

// AllowAll authorizes every configuration write. Deployment glue replaces
// this with the platform's permission check.
var AllowAll = AuthorizerFunc(func(*http.Request, engage.UserID, engage.TenantID) bool { return true })

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *engage.AttendanceService
	Ranking   *engage.RankingQuery
	Configs   engage.ConfigStore
	Deliverer engage.Deliverer
	Auth      Authorizer
	Logger    *zap.Logger
}

// NewHandler wires a handler. A nil authorizer allows everything; a nil
// logger is replaced with a no-op.
func NewHandler(service *engage.AttendanceService, ranking *engage.RankingQuery, configs engage.ConfigStore, deliverer engage.Deliverer, auth Authorizer, logger *zap.Logger) *Handler {
	if auth == nil {
		auth = AllowAll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:   service,
		Ranking:   ranking,
		Configs:   configs,
		Deliverer: deliverer,
		Auth:      auth,
		Logger:    logger,
	}
}

// =============================================================================
// CHECK-IN / STATS / RANKING
// =============================================================================

// CheckIn handles POST /api/tenants/{tenant}/checkin.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	tenant := engage.TenantID(chi.URLParam(r, "tenant"))

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.User == "" {
		req.User = r.Header.Get(userHeader)
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required", nil)
		return
	}

	outcome, err := h.Service.CheckIn(r.Context(), engage.UserID(req.User), tenant)
	if err != nil {
		h.Logger.Error("check-in failed",
			zap.String("tenant", string(tenant)),
			zap.String("user", req.User),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "check-in failed", nil)
		return
	}

	if !outcome.Accepted {
		writeJSON(w, http.StatusOK, CheckInResponse{Status: "already_checked_in"})
		return
	}
	writeJSON(w, http.StatusOK, CheckInResponse{
		Status:        "accepted",
		LeveledUp:     outcome.LeveledUp,
		NewLevel:      outcome.NewLevel,
		PointsAwarded: outcome.PointsAwarded,
	})
}

// Stats handles GET /api/tenants/{tenant}/users/{user}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tenant := engage.TenantID(chi.URLParam(r, "tenant"))
	user := engage.UserID(chi.URLParam(r, "user"))

	summary, err := h.Service.Stats(r.Context(), user, tenant)
	if err != nil {
		if engage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "no attendance data", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "stat query failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		User:            string(user),
		Tenant:          string(tenant),
		Points:          summary.Progress.Points,
		Level:           summary.Progress.Level,
		NextLevelCost:   summary.NextLevelCost,
		LevelProgress:   summary.LevelRatio.String(),
		AttendanceCount: summary.Progress.Count,
	})
}

// GetRanking handles GET /api/tenants/{tenant}/ranking?limit=N.
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	tenant := engage.TenantID(chi.URLParam(r, "tenant"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	entries, err := h.Ranking.Top(r.Context(), tenant, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ranking query failed", nil)
		return
	}

	dtos := make([]RankEntryDTO, 0, len(entries))
	for i, e := range entries {
		dtos = append(dtos, RankEntryDTO{Rank: i + 1, User: string(e.User), Count: e.Count})
	}
	writeJSON(w, http.StatusOK, RankingResponse{Tenant: string(tenant), Entries: dtos})
}

// =============================================================================
// CONFIGURATION ENDPOINTS
// =============================================================================

// GetConfig handles GET /api/tenants/{tenant}/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	tenant := engage.TenantID(chi.URLParam(r, "tenant"))

	cfg, err := h.Configs.GetConfig(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "config lookup failed", nil)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "tenant not configured", engage.ErrNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(*cfg))
}

// SetChannel handles PUT /api/tenants/{tenant}/config/channel.
func (h *Handler) SetChannel(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.authorizeConfig(w, r)
	if !ok {
		return
	}

	var req SetChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Channel == "" {
		writeError(w, http.StatusBadRequest, "channel is required", err)
		return
	}

	if err := h.Configs.SetChannel(r.Context(), tenant, req.Channel); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set channel", nil)
		return
	}
	h.writeConfig(w, r, tenant)
}

// SetSchedule handles PUT /api/tenants/{tenant}/config/schedule.
// Hour/minute ranges are validated here, before the store.
func (h *Handler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.authorizeConfig(w, r)
	if !ok {
		return
	}

	var req SetScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := engage.ValidateSchedule(req.Hour, req.Minute); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule", err)
		return
	}

	if err := h.Configs.SetSchedule(r.Context(), tenant, req.Hour, req.Minute); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set schedule", nil)
		return
	}
	h.writeConfig(w, r, tenant)
}

// SetMessage handles PUT /api/tenants/{tenant}/config/message.
func (h *Handler) SetMessage(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.authorizeConfig(w, r)
	if !ok {
		return
	}

	var req SetMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", err)
		return
	}

	if err := h.Configs.SetMessage(r.Context(), tenant, req.Message); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set message", nil)
		return
	}
	h.writeConfig(w, r, tenant)
}

// =============================================================================
// BROADCAST TEST
// =============================================================================

// TestBroadcast handles POST /api/tenants/{tenant}/broadcast/test.
// Fires the tenant's configured message once through the delivery
// collaborator. Nothing is recorded; a failure is reported, not retried.
func (h *Handler) TestBroadcast(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.authorizeConfig(w, r)
	if !ok {
		return
	}

	cfg, err := h.Configs.GetConfig(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "config lookup failed", nil)
		return
	}
	if cfg == nil || !cfg.FullyConfigured() {
		writeError(w, http.StatusNotFound, "tenant not fully configured", engage.ErrNotConfigured)
		return
	}

	if err := h.Deliverer.Deliver(r.Context(), *cfg.Channel, *cfg.Message); err != nil {
		h.Logger.Error("broadcast test delivery failed",
			zap.String("tenant", string(tenant)),
			zap.String("channel", *cfg.Channel),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "delivery failed", engage.ErrDeliveryFailed)
		return
	}
	writeJSON(w, http.StatusOK, BroadcastTestResponse{Delivered: true, Channel: *cfg.Channel})
}

// =============================================================================
// HELPERS
// =============================================================================

// authorizeConfig extracts the tenant and runs the Authorizer for a
// configuration write. Writes the 403 itself when denied.
func (h *Handler) authorizeConfig(w http.ResponseWriter, r *http.Request) (engage.TenantID, bool) {
	tenant := engage.TenantID(chi.URLParam(r, "tenant"))
	user := engage.UserID(r.Header.Get(userHeader))

	if !h.Auth.CanConfigure(r, user, tenant) {
		writeError(w, http.StatusForbidden, "not authorized to configure this tenant", nil)
		return tenant, false
	}
	return tenant, true
}

func (h *Handler) writeConfig(w http.ResponseWriter, r *http.Request, tenant engage.TenantID) {
	cfg, err := h.Configs.GetConfig(r.Context(), tenant)
	if err != nil || cfg == nil {
		writeError(w, http.StatusInternalServerError, "config readback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(*cfg))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
