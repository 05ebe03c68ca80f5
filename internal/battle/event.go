package battle

import "fmt"

// EventKind classifies an Event.
type EventKind string

const (
	EventFatigue  EventKind = "fatigue"
	EventCritical EventKind = "critical"
	EventAttack   EventKind = "attack"
	EventStatus   EventKind = "status"
	EventOutcome  EventKind = "outcome"
)

// Side identifies one of the two forces.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// String returns a lower-case side label.
func (s Side) String() string {
	switch s {
	case SideA:
		return "side_a"
	case SideB:
		return "side_b"
	default:
		return "none"
	}
}

// MarshalText encodes the side as its label.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a label produced by MarshalText.
func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "side_a":
		*s = SideA
	case "side_b":
		*s = SideB
	case "none", "":
		*s = SideNone
	default:
		return fmt.Errorf("unknown side %q", string(b))
	}
	return nil
}

// Reason explains how a battle terminated.
type Reason string

const (
	// ReasonAnnihilation means exactly one side lost every unit.
	ReasonAnnihilation Reason = "annihilation"
	// ReasonMutualAnnihilation means both sides lost every unit in the same round.
	ReasonMutualAnnihilation Reason = "mutual_annihilation"
	// ReasonMaxRounds means the round cap was reached and remaining totals decided.
	ReasonMaxRounds Reason = "max_rounds"
)

// Outcome is the final result of a battle.
type Outcome struct {
	// Winner is SideNone on a draw.
	Winner Side   `json:"winner"`
	Reason Reason `json:"reason"`
	// Round is the round on which the battle terminated.
	Round      int   `json:"round"`
	SideATotal int64 `json:"side_a_total"`
	SideBTotal int64 `json:"side_b_total"`
}

// Draw reports whether neither side won.
func (o Outcome) Draw() bool { return o.Winner == SideNone }

// Event is one entry of the append-only battle log.
// Fields not relevant to Kind are left zero.
type Event struct {
	Round int       `json:"round"`
	Kind  EventKind `json:"kind"`
	// Side is the acting side for attack and critical events.
	Side     Side   `json:"side,omitempty"`
	Attacker string `json:"attacker,omitempty"`
	Defender string `json:"defender,omitempty"`
	Power    int64  `json:"power,omitempty"`
	Damage   int64  `json:"damage,omitempty"`
	Critical bool   `json:"critical,omitempty"`
	UnitLost bool   `json:"unit_lost,omitempty"`
	// Remaining is the defending column's count after an attack.
	Remaining int64 `json:"remaining,omitempty"`
	// Percent is the fatigue decay applied on fatigue events.
	Percent int       `json:"percent,omitempty"`
	Status  *Snapshot `json:"status,omitempty"`
	Outcome *Outcome  `json:"outcome,omitempty"`
}

// Sink receives battle events in order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Emit(Event) {}
