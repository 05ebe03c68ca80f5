package battle

import (
	"errors"
	"fmt"
)

// ErrNoTarget is returned when the selector finds nothing to attack although the
// defending force still reports a living column.
var ErrNoTarget = errors.New("no target found in a living force")

// ErrCorruptState is returned when a cursor or force violates engine invariants.
var ErrCorruptState = errors.New("corrupt battle state")

// AttackResult describes one resolved attack.
type AttackResult struct {
	// Skipped is true when the attacker had no units left; nothing else is set.
	Skipped bool
	// NoTarget is true when the defending force was already defeated.
	NoTarget bool
	Attacker string
	Defender string
	// TargetIndex is the defending column index, or -1 when no attack landed.
	TargetIndex int
	Power       int64
	Damage      int64
	Critical    bool
	UnitLost    bool
	// Remaining is the target column's count after the attack.
	Remaining int64
}

// Resolver applies the attack, damage, and attrition arithmetic.
type Resolver struct {
	critMultiplierPercent int64
	minDamagePercent      int64
}

// NewResolver creates a Resolver from the battle tuning.
//
// Precondition: cfg must pass Validate.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		critMultiplierPercent: int64(cfg.CritMultiplierPercent),
		minDamagePercent:      int64(cfg.MinDamagePercent),
	}
}

// Damage returns the damage power deals against defense, applying the
// minimum-damage floor when defense absorbs the whole hit.
//
// Postcondition: power == 0 yields 0; power > 0 yields >= 1.
func (r *Resolver) Damage(power, defense int64) int64 {
	if power == 0 {
		return 0
	}
	dmg := power - defense
	if dmg <= 0 {
		dmg = power * r.minDamagePercent / 100
		if dmg < 1 {
			dmg = 1
		}
	}
	return dmg
}

// Attack resolves one attack by attacker against the next living column of defenders.
//
// Precondition: attacker, sched, defenders and cursor must be non-nil.
// Postcondition: at most one unit of the target column is lost; the target's
// health is reset to MaxHealth exactly when a unit is lost. Returns ErrNoTarget
// when the selector fails while defenders still has a living column, and
// ErrCorruptState when the cursor is out of range.
func (r *Resolver) Attack(attacker *Column, sched *CritScheduler, defenders *Force, cursor *Cursor) (AttackResult, error) {
	res := AttackResult{Attacker: attacker.Name, TargetIndex: -1}
	if !attacker.Alive() {
		res.Skipped = true
		return res, nil
	}
	if !cursor.valid(defenders.Len()) {
		return res, fmt.Errorf("%w: cursor %d outside force %q of size %d", ErrCorruptState, cursor.next, defenders.Name, defenders.Len())
	}

	power := attacker.Attack * attacker.Remaining
	if sched.ShouldCrit() {
		power = power * r.critMultiplierPercent / 100
		res.Critical = true
	}
	res.Power = power

	idx, ok := SelectTarget(defenders, cursor)
	if !ok {
		if !defenders.Defeated() {
			return res, fmt.Errorf("%s attacking %q: %w", attacker.Name, defenders.Name, ErrNoTarget)
		}
		res.NoTarget = true
		return res, nil
	}

	target := defenders.Column(idx)
	dmg := r.Damage(power, target.Defense)
	target.Health -= dmg
	if target.Health <= 0 {
		target.Remaining--
		target.Health = target.MaxHealth
		res.UnitLost = true
	}

	res.Defender = target.Name
	res.TargetIndex = idx
	res.Damage = dmg
	res.Remaining = target.Remaining
	return res, nil
}
