/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the core domain model from the external API contract. The core returns
  structured outcomes; rendering them into user-facing text is the
  platform collaborator's job, so the DTOs stay structural.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO / *Response: Types returned to clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import "github.com/warp/engagement-engine/engage"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CheckInRequest identifies the user checking in. The tenant comes from
// the URL.
type CheckInRequest struct {
	User string `json:"user"`
}

// SetChannelRequest sets the tenant's broadcast channel reference.
type SetChannelRequest struct {
	Channel string `json:"channel"`
}

// SetScheduleRequest sets the tenant's broadcast time (reference timezone).
type SetScheduleRequest struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// SetMessageRequest sets the tenant's broadcast text.
type SetMessageRequest struct {
	Message string `json:"message"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CheckInResponse reports the structured check-in outcome.
// Status is "accepted" or "already_checked_in".
type CheckInResponse struct {
	Status        string `json:"status"`
	LeveledUp     bool   `json:"leveled_up,omitempty"`
	NewLevel      int    `json:"new_level,omitempty"`
	PointsAwarded int    `json:"points_awarded,omitempty"`
}

// StatsResponse is the stat-query read model.
type StatsResponse struct {
	User            string `json:"user"`
	Tenant          string `json:"tenant"`
	Points          int    `json:"points"`
	Level           int    `json:"level"`
	NextLevelCost   int    `json:"next_level_cost"`
	LevelProgress   string `json:"level_progress"` // fraction of the way to the next level
	AttendanceCount int    `json:"attendance_count"`
}

// RankEntryDTO is one row of the ranking response.
type RankEntryDTO struct {
	Rank  int    `json:"rank"`
	User  string `json:"user"`
	Count int    `json:"count"`
}

// RankingResponse lists the top users by lifetime attendance.
type RankingResponse struct {
	Tenant  string         `json:"tenant"`
	Entries []RankEntryDTO `json:"entries"`
}

// ConfigDTO mirrors the tenant's broadcast configuration. Unset fields
// are omitted.
type ConfigDTO struct {
	Tenant          string  `json:"tenant"`
	Channel         *string `json:"channel,omitempty"`
	Hour            *int    `json:"hour,omitempty"`
	Minute          *int    `json:"minute,omitempty"`
	Message         *string `json:"message,omitempty"`
	FullyConfigured bool    `json:"fully_configured"`
}

// BroadcastTestResponse acknowledges a manual broadcast test.
type BroadcastTestResponse struct {
	Delivered bool   `json:"delivered"`
	Channel   string `json:"channel"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toConfigDTO(cfg engage.TenantConfig) ConfigDTO {
	return ConfigDTO{
		Tenant:          string(cfg.Tenant),
		Channel:         cfg.Channel,
		Hour:            cfg.Hour,
		Minute:          cfg.Minute,
		Message:         cfg.Message,
		FullyConfigured: cfg.FullyConfigured(),
	}
}
