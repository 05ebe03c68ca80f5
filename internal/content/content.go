// Package content loads unit types and the declarative effect table that
// turns a scenario side into a battle.Force.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// File names read from a content directory.
const (
	UnitsFile   = "units.yaml"
	EffectsFile = "effects.yaml"
)

// ErrUnknownUnit and ErrUnknownEffect are returned when a scenario references
// an id missing from the library.
var (
	ErrUnknownUnit   = errors.New("content: unknown unit")
	ErrUnknownEffect = errors.New("content: unknown effect")
)

// Unit is a unit type definition.
type Unit struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Attack     int64  `yaml:"attack"`
	Defense    int64  `yaml:"defense"`
	Health     int64  `yaml:"health"`
	CritChance int    `yaml:"crit_chance"`
}

// Validate checks that the unit satisfies basic invariants.
//
// Precondition: u must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Attack and Defense
// are >= 0, Health >= 1 and CritChance is in [0,100].
func (u *Unit) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("unit: id must not be empty")
	}
	if u.Name == "" {
		return fmt.Errorf("unit %q: name must not be empty", u.ID)
	}
	if u.Attack < 0 || u.Defense < 0 {
		return fmt.Errorf("unit %q: attack and defense must be >= 0", u.ID)
	}
	if u.Health < 1 {
		return fmt.Errorf("unit %q: health must be >= 1", u.ID)
	}
	if u.CritChance < 0 || u.CritChance > 100 {
		return fmt.Errorf("unit %q: crit_chance must be in [0,100], got %d", u.ID, u.CritChance)
	}
	return nil
}

// Kind says which scenario slot an effect fills.
type Kind string

const (
	KindHero     Kind = "hero"
	KindCreature Kind = "creature"
	KindResearch Kind = "research"
)

// Stat is the column attribute an effect modifies.
type Stat string

const (
	StatAttack     Stat = "attack"
	StatDefense    Stat = "defense"
	StatCritChance Stat = "crit_chance"
)

// Mode is how an effect combines its magnitude with the current value.
type Mode string

const (
	// ModeMultiplicative applies v*(100+m)/100.
	ModeMultiplicative Mode = "multiplicative"
	// ModeAdditive applies v+m.
	ModeAdditive Mode = "additive"
	// ModeFormula evaluates a Lua formula.
	ModeFormula Mode = "formula"
)

// Effect is one row of the modifier table.
type Effect struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Kind      Kind   `yaml:"kind"`
	Stat      Stat   `yaml:"stat"`
	Mode      Mode   `yaml:"mode"`
	Magnitude int64  `yaml:"magnitude"`
	// Levels holds per-level magnitudes for research effects.
	Levels  []int64  `yaml:"levels"`
	Formula string   `yaml:"formula"`
	Targets []string `yaml:"targets"`
}

// Validate checks the effect in isolation. Target ids are checked by NewLibrary.
//
// Precondition: e must not be nil.
// Postcondition: Returns nil iff ID and Name are set, Kind, Stat and Mode are
// known, formula effects carry a formula, and Targets is non-empty.
func (e *Effect) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("effect: id must not be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("effect %q: name must not be empty", e.ID)
	}
	switch e.Kind {
	case KindHero, KindCreature, KindResearch:
	default:
		return fmt.Errorf("effect %q: unknown kind %q", e.ID, e.Kind)
	}
	switch e.Stat {
	case StatAttack, StatDefense, StatCritChance:
	default:
		return fmt.Errorf("effect %q: unknown stat %q", e.ID, e.Stat)
	}
	switch e.Mode {
	case ModeMultiplicative, ModeAdditive:
	case ModeFormula:
		if e.Formula == "" {
			return fmt.Errorf("effect %q: formula mode requires a formula", e.ID)
		}
	default:
		return fmt.Errorf("effect %q: unknown mode %q", e.ID, e.Mode)
	}
	if len(e.Targets) == 0 {
		return fmt.Errorf("effect %q: targets must not be empty", e.ID)
	}
	return nil
}

// MagnitudeAt returns the magnitude for a research level. Levels beyond the
// table use its last entry; an effect with no levels uses Magnitude.
//
// Precondition: level >= 1.
func (e *Effect) MagnitudeAt(level int) int64 {
	if len(e.Levels) == 0 {
		return e.Magnitude
	}
	idx := min(level, len(e.Levels)) - 1
	return e.Levels[max(idx, 0)]
}

// appliesTo reports whether unit id is among the targets.
func (e *Effect) appliesTo(unitID string) bool {
	return slices.Contains(e.Targets, unitID)
}

// LoadUnitsFromBytes parses and validates a YAML list of units.
//
// Postcondition: Returns validated units or the first error.
func LoadUnitsFromBytes(data []byte) ([]*Unit, error) {
	var units []*Unit
	if err := yaml.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("parsing units YAML: %w", err)
	}
	for _, u := range units {
		if u == nil {
			return nil, fmt.Errorf("parsing units YAML: empty entry")
		}
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}
	return units, nil
}

// LoadEffectsFromBytes parses and validates a YAML list of effects.
//
// Postcondition: Returns validated effects or the first error.
func LoadEffectsFromBytes(data []byte) ([]*Effect, error) {
	var effects []*Effect
	if err := yaml.Unmarshal(data, &effects); err != nil {
		return nil, fmt.Errorf("parsing effects YAML: %w", err)
	}
	for _, e := range effects {
		if e == nil {
			return nil, fmt.Errorf("parsing effects YAML: empty entry")
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return effects, nil
}

// readDir loads units.yaml and effects.yaml from dir.
func readDir(dir string) ([]*Unit, []*Effect, error) {
	path := filepath.Join(dir, UnitsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %q: %w", path, err)
	}
	units, err := LoadUnitsFromBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %q: %w", path, err)
	}

	path = filepath.Join(dir, EffectsFile)
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %q: %w", path, err)
	}
	effects, err := LoadEffectsFromBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return units, effects, nil
}
