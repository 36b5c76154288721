package engage

import (
	"context"
	"fmt"
)

// DefaultRankingLimit caps ranking queries that do not specify a limit.
const DefaultRankingLimit = 10

// RankingQuery answers per-tenant attendance rankings. Read-only; it
// never mutates progress.
type RankingQuery struct {
	Store RankingStore
}

func NewRankingQuery(store RankingStore) *RankingQuery {
	return &RankingQuery{Store: store}
}

// Top returns up to limit users ordered by lifetime attendance count,
// descending, ties broken by user id ascending. limit <= 0 falls back to
// DefaultRankingLimit.
func (q *RankingQuery) Top(ctx context.Context, tenant TenantID, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	entries, err := q.Store.TopByAttendance(ctx, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking query: %w", err)
	}
	return entries, nil
}
