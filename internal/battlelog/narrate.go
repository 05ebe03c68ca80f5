// Package battlelog turns battle events into narration, structured log
// entries, in-memory recordings and content digests.
package battlelog

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/warsim/internal/battle"
)

// Narrate renders e as a single human-readable line.
//
// Postcondition: Returns a non-empty string for every known event kind.
func Narrate(e battle.Event) string {
	switch e.Kind {
	case battle.EventFatigue:
		return fmt.Sprintf("Round %d: fatigue sets in, attack and defense fall by %d%%", e.Round, e.Percent)
	case battle.EventCritical:
		return fmt.Sprintf("Round %d: %s %s lands a critical hit (power %d)", e.Round, e.Side, e.Attacker, e.Power)
	case battle.EventAttack:
		var b strings.Builder
		fmt.Fprintf(&b, "Round %d: %s %s strikes %s for %d damage (power %d)",
			e.Round, e.Side, e.Attacker, e.Defender, e.Damage, e.Power)
		if e.UnitLost {
			fmt.Fprintf(&b, ", a unit falls, %d remain", e.Remaining)
		}
		return b.String()
	case battle.EventStatus:
		if e.Status == nil {
			return fmt.Sprintf("Round %d: status", e.Round)
		}
		return fmt.Sprintf("Round %d: %s %s",
			e.Round, forceLine(e.Status.SideA), forceLine(e.Status.SideB))
	case battle.EventOutcome:
		if e.Outcome == nil {
			return fmt.Sprintf("Round %d: battle over", e.Round)
		}
		o := e.Outcome
		if o.Draw() {
			return fmt.Sprintf("Battle over in round %d: draw by %s (%d vs %d remaining)",
				o.Round, o.Reason, o.SideATotal, o.SideBTotal)
		}
		return fmt.Sprintf("Battle over in round %d: %s wins by %s (%d vs %d remaining)",
			o.Round, o.Winner, o.Reason, o.SideATotal, o.SideBTotal)
	default:
		return fmt.Sprintf("Round %d: %s", e.Round, e.Kind)
	}
}

func forceLine(f battle.ForceSnapshot) string {
	parts := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		parts[i] = fmt.Sprintf("%s %d", c.Name, c.Remaining)
	}
	return fmt.Sprintf("[%s: %s]", f.Name, strings.Join(parts, ", "))
}
