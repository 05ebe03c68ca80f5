package battle

import "math"

// NeverCrit is the threshold of a scheduler whose column cannot land critical hits.
const NeverCrit = math.MaxInt64

// CritScheduler decides which of a column's attacks are critical hits.
// Critical hits are scheduled, not rolled: every threshold-th attack crits.
type CritScheduler struct {
	attackCount int64
	threshold   int64
}

// NewCritScheduler computes the threshold floor(100/chance) once.
//
// Postcondition: chance <= 0 yields a scheduler with threshold NeverCrit;
// otherwise threshold >= 1.
func NewCritScheduler(chance int) *CritScheduler {
	if chance <= 0 {
		return &CritScheduler{threshold: NeverCrit}
	}
	threshold := int64(100 / chance)
	if threshold < 1 {
		threshold = 1
	}
	return &CritScheduler{threshold: threshold}
}

// Threshold returns the number of attacks needed for a critical hit.
func (s *CritScheduler) Threshold() int64 { return s.threshold }

// AttackCount returns the attacks made since the last critical hit.
func (s *CritScheduler) AttackCount() int64 { return s.attackCount }

// Disabled reports whether the scheduler can never fire.
func (s *CritScheduler) Disabled() bool { return s.threshold == NeverCrit }

// ShouldCrit records one attack and reports whether it is critical.
//
// Postcondition: AttackCount() < Threshold() after the call; a disabled
// scheduler always returns false.
func (s *CritScheduler) ShouldCrit() bool {
	if s.Disabled() {
		return false
	}
	s.attackCount++
	if s.attackCount >= s.threshold {
		s.attackCount = 0
		return true
	}
	return false
}
