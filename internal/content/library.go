package content

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/scenario"
	"github.com/cory-johannsen/warsim/internal/scripting"
)

// ColumnEffects lists the effects applied to one column of a built force.
type ColumnEffects struct {
	Unit     string   `json:"unit"`
	Effects  []string `json:"effects,omitempty"`
	Hero     bool     `json:"hero,omitempty"`
	Creature bool     `json:"creature,omitempty"`
}

// Highlighted reports whether a hero or creature effect touched the column.
func (c ColumnEffects) Highlighted() bool { return c.Hero || c.Creature }

// AppliedEffects is indexed like the columns of the force it describes.
type AppliedEffects []ColumnEffects

// Library holds unit types and effects, and builds forces from scenario sides.
// A Library is immutable after construction and safe for concurrent use.
type Library struct {
	units   map[string]*Unit
	effects map[string]*Effect
	eval    *scripting.Evaluator
}

// NewLibrary indexes units and effects and compiles formula effects into eval.
//
// Precondition: units and effects must each be validated; eval may be nil only
// when no effect uses ModeFormula.
// Postcondition: Returns a Library, or an error on duplicate ids, effect
// targets naming unknown units, or a formula that fails to compile.
func NewLibrary(units []*Unit, effects []*Effect, eval *scripting.Evaluator) (*Library, error) {
	l := &Library{
		units:   make(map[string]*Unit, len(units)),
		effects: make(map[string]*Effect, len(effects)),
		eval:    eval,
	}
	for _, u := range units {
		if _, dup := l.units[u.ID]; dup {
			return nil, fmt.Errorf("unit %q: duplicate id", u.ID)
		}
		l.units[u.ID] = u
	}
	for _, e := range effects {
		if _, dup := l.effects[e.ID]; dup {
			return nil, fmt.Errorf("effect %q: duplicate id", e.ID)
		}
		for _, target := range e.Targets {
			if _, ok := l.units[target]; !ok {
				return nil, fmt.Errorf("effect %q: target %w %q", e.ID, ErrUnknownUnit, target)
			}
		}
		if e.Mode == ModeFormula {
			if eval == nil {
				return nil, fmt.Errorf("effect %q: formula effects need a script evaluator", e.ID)
			}
			if err := eval.Compile(e.ID, e.Formula); err != nil {
				return nil, fmt.Errorf("effect %q: %w", e.ID, err)
			}
		}
		l.effects[e.ID] = e
	}
	return l, nil
}

// Load reads units.yaml and effects.yaml from dir and builds a Library.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Library or the first load or validation error.
func Load(dir string, eval *scripting.Evaluator) (*Library, error) {
	units, effects, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	return NewLibrary(units, effects, eval)
}

// Unit returns the unit type with id.
func (l *Library) Unit(id string) (*Unit, bool) {
	u, ok := l.units[id]
	return u, ok
}

// Effect returns the effect with id.
func (l *Library) Effect(id string) (*Effect, bool) {
	e, ok := l.effects[id]
	return e, ok
}

// UnitIDs returns all unit ids in ascending order.
func (l *Library) UnitIDs() []string {
	ids := make([]string, 0, len(l.units))
	for id := range l.units {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// EffectIDs returns all effect ids in ascending order.
func (l *Library) EffectIDs() []string {
	ids := make([]string, 0, len(l.effects))
	for id := range l.effects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// BuildForce turns a scenario side into a Force. Columns follow the side's
// unit order. The hero effect applies first, then the creature, then research
// in ascending id order; each touches only the side's own targeted columns.
//
// Precondition: side must come from a validated scenario.
// Postcondition: Returns a Force with Health == MaxHealth on every column,
// crit chance in [0,100], attack and defense >= 0, and the effects applied to
// each column; or an error wrapping ErrUnknownUnit, ErrUnknownEffect, or a
// formula failure.
func (l *Library) BuildForce(side scenario.Side) (*battle.Force, AppliedEffects, error) {
	ids := make([]string, len(side.Units))
	cols := make([]*battle.Column, len(side.Units))
	applied := make(AppliedEffects, len(side.Units))
	for i, uc := range side.Units {
		u, ok := l.units[uc.Unit]
		if !ok {
			return nil, nil, fmt.Errorf("side %q: %w %q", side.Name, ErrUnknownUnit, uc.Unit)
		}
		ids[i] = u.ID
		cols[i] = &battle.Column{
			Name:           u.Name,
			Attack:         u.Attack,
			Defense:        u.Defense,
			Health:         u.Health,
			MaxHealth:      u.Health,
			CriticalChance: u.CritChance,
			Remaining:      uc.Count,
		}
		applied[i].Unit = u.ID
	}

	if side.Hero != "" {
		if err := l.applyByID(side.Name, side.Hero, KindHero, 1, ids, cols, applied); err != nil {
			return nil, nil, err
		}
	}
	if side.Creature != "" {
		if err := l.applyByID(side.Name, side.Creature, KindCreature, 1, ids, cols, applied); err != nil {
			return nil, nil, err
		}
	}
	for _, id := range side.ResearchIDs() {
		level := side.Research[id]
		if level <= 0 {
			continue
		}
		if err := l.applyByID(side.Name, id, KindResearch, level, ids, cols, applied); err != nil {
			return nil, nil, err
		}
	}

	force, err := battle.NewForce(side.Name, cols)
	if err != nil {
		return nil, nil, err
	}
	return force, applied, nil
}

func (l *Library) applyByID(sideName, id string, kind Kind, level int, ids []string, cols []*battle.Column, applied AppliedEffects) error {
	e, ok := l.effects[id]
	if !ok {
		return fmt.Errorf("side %q: %w %q", sideName, ErrUnknownEffect, id)
	}
	if e.Kind != kind {
		return fmt.Errorf("side %q: effect %q is a %s, not a %s", sideName, id, e.Kind, kind)
	}

	magnitude := e.Magnitude
	if kind == KindResearch {
		magnitude = e.MagnitudeAt(level)
	}
	for i, unitID := range ids {
		if !e.appliesTo(unitID) {
			continue
		}
		next, err := l.modify(e, statValue(cols[i], e.Stat), magnitude, level)
		if err != nil {
			return fmt.Errorf("side %q: effect %q on %q: %w", sideName, id, unitID, err)
		}
		setStat(cols[i], e.Stat, next)

		applied[i].Effects = append(applied[i].Effects, e.ID)
		switch kind {
		case KindHero:
			applied[i].Hero = true
		case KindCreature:
			applied[i].Creature = true
		}
	}
	return nil
}

func (l *Library) modify(e *Effect, v, m int64, level int) (int64, error) {
	switch e.Mode {
	case ModeMultiplicative:
		return v * (100 + m) / 100, nil
	case ModeAdditive:
		return v + m, nil
	case ModeFormula:
		return l.eval.Eval(e.ID, scripting.Vars{Value: v, Magnitude: m, Level: level})
	}
	return v, fmt.Errorf("unknown mode %q", e.Mode)
}

func statValue(c *battle.Column, s Stat) int64 {
	switch s {
	case StatAttack:
		return c.Attack
	case StatDefense:
		return c.Defense
	default:
		return int64(c.CriticalChance)
	}
}

func setStat(c *battle.Column, s Stat, v int64) {
	switch s {
	case StatAttack:
		c.Attack = max(v, 0)
	case StatDefense:
		c.Defense = max(v, 0)
	default:
		c.CriticalChance = int(min(max(v, 0), 100))
	}
}
