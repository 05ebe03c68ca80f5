// Package scenario defines battle scenario documents and the sources they are
// fetched from.
package scenario

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when a source has no scenario for a reference.
	ErrNotFound = errors.New("scenario: not found")
	// ErrInvalid is returned when a scenario document fails validation.
	ErrInvalid = errors.New("scenario: invalid document")
)

// UnitCount is one column of a side: a unit type id and how many of it.
type UnitCount struct {
	Unit  string `yaml:"unit" json:"unit"`
	Count int64  `yaml:"count" json:"count"`
}

// Side describes one army in a scenario. Hero and Creature are optional
// effect ids; Research maps research effect ids to their level.
type Side struct {
	Name     string         `yaml:"name" json:"name"`
	Units    []UnitCount    `yaml:"units" json:"units"`
	Hero     string         `yaml:"hero,omitempty" json:"hero,omitempty"`
	Creature string         `yaml:"creature,omitempty" json:"creature,omitempty"`
	Research map[string]int `yaml:"research,omitempty" json:"research,omitempty"`
}

// ResearchIDs returns the research ids in ascending order.
func (s Side) ResearchIDs() []string {
	ids := make([]string, 0, len(s.Research))
	for id := range s.Research {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Scenario is a two-sided battle setup.
type Scenario struct {
	Name  string `yaml:"name" json:"name"`
	Sides []Side `yaml:"sides" json:"sides"`
}

// Validate checks the document shape. Unit and effect ids are resolved later
// against the content library.
//
// Precondition: s must not be nil.
// Postcondition: Returns nil iff there are exactly two named sides, each with
// at least one unit entry, no empty unit id, no negative count and no negative
// research level; otherwise returns an error wrapping ErrInvalid.
func (s *Scenario) Validate() error {
	if len(s.Sides) != 2 {
		return fmt.Errorf("%w: %q has %d sides, want 2", ErrInvalid, s.Name, len(s.Sides))
	}
	for i, side := range s.Sides {
		if side.Name == "" {
			return fmt.Errorf("%w: side %d has no name", ErrInvalid, i)
		}
		if len(side.Units) == 0 {
			return fmt.Errorf("%w: side %q has no units", ErrInvalid, side.Name)
		}
		for _, u := range side.Units {
			if u.Unit == "" {
				return fmt.Errorf("%w: side %q has a unit with no id", ErrInvalid, side.Name)
			}
			if u.Count < 0 {
				return fmt.Errorf("%w: side %q unit %q count %d is negative", ErrInvalid, side.Name, u.Unit, u.Count)
			}
		}
		for id, lvl := range side.Research {
			if lvl < 0 {
				return fmt.Errorf("%w: side %q research %q level %d is negative", ErrInvalid, side.Name, id, lvl)
			}
		}
	}
	return nil
}

// Parse decodes a scenario from YAML or JSON bytes and validates it.
//
// Postcondition: Returns a validated *Scenario, or an error.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
