/*
service.go - Check-in orchestration

PURPOSE:
  AttendanceService owns the transition sequence
      insert attendance fact -> read-or-init progress -> apply reward -> save
  No other component mutates attendance or progress.

FAILURE MODE (accepted, documented):
  The ledger write and the progress update are causally ordered: progress
  is touched only after the ledger accepts the check-in. A crash between
  the two steps leaves the user without their reward AND without the
  ability to re-claim that day. This is deliberate: the service does not
  retry, because a blind retry after a crash that happened after the
  progress write would double-reward.
*/
package engage

import (
	"context"
	"errors"
	"fmt"
)

// AttendanceService orchestrates check-in requests and stat queries.
type AttendanceService struct {
	Ledger   AttendanceLedger
	Progress ProgressStore
	Clock    Clock
}

func NewAttendanceService(ledger AttendanceLedger, progress ProgressStore, clock Clock) *AttendanceService {
	return &AttendanceService{Ledger: ledger, Progress: progress, Clock: clock}
}

// CheckIn records today's check-in for (user, tenant) and applies the
// reward. A repeat call on the same calendar day returns an outcome with
// Accepted=false and performs no mutation.
func (s *AttendanceService) CheckIn(ctx context.Context, user UserID, tenant TenantID) (CheckInOutcome, error) {
	day := DayOf(s.Clock.Now())

	if err := s.Ledger.RecordCheckIn(ctx, user, tenant, day); err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			return CheckInOutcome{Accepted: false}, nil
		}
		return CheckInOutcome{}, fmt.Errorf("record check-in: %w", err)
	}

	stored, err := s.Progress.GetProgress(ctx, user, tenant)
	if err != nil {
		return CheckInOutcome{}, fmt.Errorf("load progress: %w", err)
	}
	progress := NewProgress(user, tenant)
	if stored != nil {
		progress = *stored
	}

	progress, leveledUp, newLevel := AwardCheckIn(progress)

	if err := s.Progress.SaveProgress(ctx, progress); err != nil {
		// Ledger row is already in place: the day is spent and the reward
		// is lost. See the failure-mode note above.
		return CheckInOutcome{}, fmt.Errorf("save progress: %w", err)
	}

	return CheckInOutcome{
		Accepted:      true,
		LeveledUp:     leveledUp,
		NewLevel:      newLevel,
		PointsAwarded: CheckInReward,
	}, nil
}

// Stats returns the stored progress plus derived next-level figures.
// ErrNoProgress when the pair has never checked in.
func (s *AttendanceService) Stats(ctx context.Context, user UserID, tenant TenantID) (StatSummary, error) {
	stored, err := s.Progress.GetProgress(ctx, user, tenant)
	if err != nil {
		return StatSummary{}, fmt.Errorf("load progress: %w", err)
	}
	if stored == nil {
		return StatSummary{}, ErrNoProgress
	}

	return StatSummary{
		Progress:      *stored,
		NextLevelCost: stored.NextLevelCost(),
		LevelRatio:    stored.LevelRatio(),
	}, nil
}
