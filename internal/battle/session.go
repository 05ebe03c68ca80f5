package battle

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// ErrBattleOver is returned by Step once the battle has reached a terminal state.
var ErrBattleOver = errors.New("battle is over")

// Session states.
const (
	StateRunning   = "running"
	StateSideAWins = "side_a_wins"
	StateSideBWins = "side_b_wins"
	StateDraw      = "draw"
)

const (
	eventSideAWon = "side_a_won"
	eventSideBWon = "side_b_won"
	eventDrawn    = "drawn"
)

// RoundReport is the result of one Step.
type RoundReport struct {
	Round   int
	Events  []Event
	Status  Snapshot
	Outcome *Outcome
}

// Session owns all mutable state of one battle: both forces, per-column
// schedulers, and both sides' target cursors.
// A Session is not safe for concurrent use.
type Session struct {
	cfg      Config
	resolver *Resolver
	sideA    *Force
	sideB    *Force
	schedA   []*CritScheduler
	schedB   []*CritScheduler
	cursorA  Cursor
	cursorB  Cursor
	round    int
	state    *fsm.FSM
	outcome  *Outcome
	sink     Sink
	log      []Event
}

// NewSession prepares a battle between sideA and sideB.
//
// Precondition: cfg must pass Validate; sideA and sideB must be built with NewForce.
// Postcondition: Returns a Session in StateRunning at round 1. sink may be nil.
func NewSession(cfg Config, sideA, sideB *Force, sink Sink) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sideA == nil || sideB == nil {
		return nil, fmt.Errorf("%w: both forces are required", ErrEmptyForce)
	}
	if sink == nil {
		sink = nopSink{}
	}
	s := &Session{
		cfg:      cfg,
		resolver: NewResolver(cfg),
		sideA:    sideA,
		sideB:    sideB,
		schedA:   schedulersFor(sideA),
		schedB:   schedulersFor(sideB),
		round:    1,
		sink:     sink,
	}
	s.state = fsm.NewFSM(
		StateRunning,
		fsm.Events{
			{Name: eventSideAWon, Src: []string{StateRunning}, Dst: StateSideAWins},
			{Name: eventSideBWon, Src: []string{StateRunning}, Dst: StateSideBWins},
			{Name: eventDrawn, Src: []string{StateRunning}, Dst: StateDraw},
		},
		fsm.Callbacks{},
	)
	return s, nil
}

func schedulersFor(f *Force) []*CritScheduler {
	out := make([]*CritScheduler, f.Len())
	for i, c := range f.columns {
		out[i] = NewCritScheduler(c.CriticalChance)
	}
	return out
}

// State returns the current state name.
func (s *Session) State() string { return s.state.Current() }

// Over reports whether the battle reached a terminal state.
func (s *Session) Over() bool { return !s.state.Is(StateRunning) }

// Round returns the round that the next Step will resolve, or the terminating
// round once the battle is over.
func (s *Session) Round() int { return s.round }

// Outcome returns the terminal outcome, or nil while running.
func (s *Session) Outcome() *Outcome { return s.outcome }

// Events returns the full event log so far. The slice must not be modified.
func (s *Session) Events() []Event { return s.log }

// Snapshot returns value copies of both forces.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{Round: s.round, SideA: s.sideA.Snapshot(), SideB: s.sideB.Snapshot()}
}

func (s *Session) emit(rep *RoundReport, e Event) {
	s.log = append(s.log, e)
	rep.Events = append(rep.Events, e)
	s.sink.Emit(e)
}

// Step resolves exactly one round: fatigue, side A attacks, side B attacks,
// status snapshot, termination check.
//
// Postcondition: Returns ErrBattleOver if the battle already ended. An error
// from the resolver aborts the round and leaves the session running.
func (s *Session) Step(ctx context.Context) (RoundReport, error) {
	rep := RoundReport{Round: s.round}
	if s.Over() {
		return rep, ErrBattleOver
	}

	if s.round%s.cfg.FatigueInterval == 0 {
		ApplyFatigue(s.sideA, s.cfg.FatiguePercent)
		ApplyFatigue(s.sideB, s.cfg.FatiguePercent)
		s.emit(&rep, Event{Round: s.round, Kind: EventFatigue, Percent: s.cfg.FatiguePercent})
	}

	if err := s.attackPhase(&rep, SideA, s.sideA, s.schedA, s.sideB, &s.cursorA); err != nil {
		return rep, err
	}
	if err := s.attackPhase(&rep, SideB, s.sideB, s.schedB, s.sideA, &s.cursorB); err != nil {
		return rep, err
	}

	status := s.Snapshot()
	rep.Status = status
	s.emit(&rep, Event{Round: s.round, Kind: EventStatus, Status: &status})

	out, done := s.terminal()
	if !done {
		s.round++
		return rep, nil
	}
	if err := s.state.Event(context.WithoutCancel(ctx), transitionFor(out.Winner)); err != nil {
		return rep, fmt.Errorf("%w: transition to terminal state: %v", ErrCorruptState, err)
	}
	s.outcome = &out
	rep.Outcome = &out
	s.emit(&rep, Event{Round: s.round, Kind: EventOutcome, Outcome: &out})
	return rep, nil
}

func (s *Session) attackPhase(rep *RoundReport, side Side, attackers *Force, scheds []*CritScheduler, defenders *Force, cursor *Cursor) error {
	for i, col := range attackers.columns {
		if !col.Alive() {
			continue
		}
		res, err := s.resolver.Attack(col, scheds[i], defenders, cursor)
		if err != nil {
			return fmt.Errorf("round %d %s: %w", s.round, side, err)
		}
		if res.Critical {
			s.emit(rep, Event{Round: s.round, Kind: EventCritical, Side: side, Attacker: res.Attacker, Power: res.Power, Critical: true})
		}
		if res.NoTarget {
			continue
		}
		s.emit(rep, Event{
			Round:     s.round,
			Kind:      EventAttack,
			Side:      side,
			Attacker:  res.Attacker,
			Defender:  res.Defender,
			Power:     res.Power,
			Damage:    res.Damage,
			Critical:  res.Critical,
			UnitLost:  res.UnitLost,
			Remaining: res.Remaining,
		})
	}
	return nil
}

func (s *Session) terminal() (Outcome, bool) {
	out := Outcome{
		Round:      s.round,
		SideATotal: s.sideA.TotalRemaining(),
		SideBTotal: s.sideB.TotalRemaining(),
	}
	aDown, bDown := s.sideA.Defeated(), s.sideB.Defeated()
	switch {
	case aDown && bDown:
		out.Reason = ReasonMutualAnnihilation
	case bDown:
		out.Winner, out.Reason = SideA, ReasonAnnihilation
	case aDown:
		out.Winner, out.Reason = SideB, ReasonAnnihilation
	case s.round >= s.cfg.MaxRounds:
		out.Reason = ReasonMaxRounds
		switch {
		case out.SideATotal > out.SideBTotal:
			out.Winner = SideA
		case out.SideBTotal > out.SideATotal:
			out.Winner = SideB
		}
	default:
		return Outcome{}, false
	}
	return out, true
}

func transitionFor(winner Side) string {
	switch winner {
	case SideA:
		return eventSideAWon
	case SideB:
		return eventSideBWon
	default:
		return eventDrawn
	}
}

// Run steps the battle until it terminates.
// ctx is checked between rounds only; a round is never interrupted.
//
// Postcondition: Returns the outcome, or the first error from Step or ctx.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	for !s.Over() {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if _, err := s.Step(ctx); err != nil {
			return Outcome{}, err
		}
	}
	return *s.outcome, nil
}
