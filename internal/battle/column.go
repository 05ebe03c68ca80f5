// Package battle implements the deterministic two-sided battle resolution engine.
package battle

import (
	"errors"
	"fmt"
)

// ErrEmptyForce is returned when a Force is built with no columns.
var ErrEmptyForce = errors.New("force has no columns")

// ErrInvalidColumn is returned when a column violates the data model invariants.
var ErrInvalidColumn = errors.New("invalid column")

// Column is the live state of one unit type within a Force.
type Column struct {
	// Name identifies the column in logs and snapshots.
	Name    string
	Attack  int64
	Defense int64
	// Health is the remaining health of the representative unit.
	Health    int64
	MaxHealth int64
	// CriticalChance is a percentage in [0,100], fixed after setup.
	CriticalChance int
	// Remaining is the number of units still in the column.
	Remaining int64
}

// Alive reports whether the column still has units.
//
// Postcondition: Returns true iff Remaining > 0.
func (c *Column) Alive() bool { return c.Remaining > 0 }

// Force is one side's fixed, ordered set of columns.
// Column order never changes once the Force is built.
type Force struct {
	Name    string
	columns []*Column
}

// NewForce builds a Force from columns, preserving their order.
//
// Precondition: columns must be non-empty and every column must have MaxHealth > 0.
// Postcondition: Returns a Force owning columns, or ErrEmptyForce / ErrInvalidColumn.
func NewForce(name string, columns []*Column) (*Force, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("force %q: %w", name, ErrEmptyForce)
	}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("force %q column %d: %w: nil column", name, i, ErrInvalidColumn)
		}
		if c.MaxHealth <= 0 {
			return nil, fmt.Errorf("force %q column %q: %w: max health must be > 0, got %d", name, c.Name, ErrInvalidColumn, c.MaxHealth)
		}
		if c.Remaining < 0 {
			return nil, fmt.Errorf("force %q column %q: %w: remaining must be >= 0, got %d", name, c.Name, ErrInvalidColumn, c.Remaining)
		}
	}
	cols := make([]*Column, len(columns))
	copy(cols, columns)
	return &Force{Name: name, columns: cols}, nil
}

// Len returns the number of columns.
func (f *Force) Len() int { return len(f.columns) }

// Column returns the column at index i.
//
// Precondition: 0 <= i < Len().
func (f *Force) Column(i int) *Column { return f.columns[i] }

// Columns returns the ordered columns. The slice must not be reordered.
func (f *Force) Columns() []*Column { return f.columns }

// Defeated reports whether every column has been depleted.
func (f *Force) Defeated() bool {
	for _, c := range f.columns {
		if c.Alive() {
			return false
		}
	}
	return true
}

// TotalRemaining sums Remaining across all columns.
func (f *Force) TotalRemaining() int64 {
	var total int64
	for _, c := range f.columns {
		total += c.Remaining
	}
	return total
}

// Snapshot returns a value copy of the force for rendering and logging.
func (f *Force) Snapshot() ForceSnapshot {
	snap := ForceSnapshot{Name: f.Name, Columns: make([]ColumnSnapshot, len(f.columns))}
	for i, c := range f.columns {
		snap.Columns[i] = ColumnSnapshot{
			Name:      c.Name,
			Attack:    c.Attack,
			Defense:   c.Defense,
			Health:    c.Health,
			MaxHealth: c.MaxHealth,
			Remaining: c.Remaining,
		}
	}
	return snap
}

// ColumnSnapshot is a read-only copy of a column's observable state.
type ColumnSnapshot struct {
	Name      string `json:"name"`
	Attack    int64  `json:"attack"`
	Defense   int64  `json:"defense"`
	Health    int64  `json:"health"`
	MaxHealth int64  `json:"max_health"`
	Remaining int64  `json:"remaining"`
}

// ForceSnapshot is a read-only copy of a force.
type ForceSnapshot struct {
	Name    string           `json:"name"`
	Columns []ColumnSnapshot `json:"columns"`
}

// TotalRemaining sums Remaining across the snapshot's columns.
func (s ForceSnapshot) TotalRemaining() int64 {
	var total int64
	for _, c := range s.Columns {
		total += c.Remaining
	}
	return total
}

// Snapshot is a read-only view of both forces after a round.
type Snapshot struct {
	Round int           `json:"round"`
	SideA ForceSnapshot `json:"side_a"`
	SideB ForceSnapshot `json:"side_b"`
}
