/*
reward.go - Points-to-level progression

PURPOSE:
  Pure functions that turn accepted check-ins into points and levels.
  No side effects, no storage access: the service reads progress, applies
  an award, and persists the result.

LEVEL-UP RULE:
  The cost of leaving level n is n*100 points. After adding a reward,
  points are spent against the current level's cost repeatedly until they
  no longer cover it. The loop re-checks the NEW level's cost on each
  iteration, so a single large award can climb several levels. With the
  fixed +100 check-in reward this is at most one step from a clean state,
  but the loop is unconditional so the rule stays correct if the reward
  ever changes.

SEE ALSO:
  - types.go:   Progress invariants
  - service.go: The only caller on the check-in path
*/
package engage

// CheckInReward is the points granted for one accepted check-in.
const CheckInReward = 100

// levelCostFactor: leaving level n costs n*levelCostFactor points.
const levelCostFactor = 100

// AwardCheckIn applies the fixed check-in reward to progress and returns
// the updated state, whether at least one level-up occurred, and the
// resulting level.
func AwardCheckIn(p Progress) (Progress, bool, int) {
	return Award(p, CheckInReward)
}

// Award adds points and one attendance to progress, then resolves any
// level-ups. Deterministic; the input is not mutated.
func Award(p Progress, points int) (Progress, bool, int) {
	p.Points += points
	p.Count++

	leveledUp := false
	for p.Points >= p.NextLevelCost() {
		p.Points -= p.NextLevelCost()
		p.Level++
		leveledUp = true
	}
	return p, leveledUp, p.Level
}
