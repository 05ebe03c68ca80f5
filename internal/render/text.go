// Package render draws battle snapshots as terminal text.
package render

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/content"
)

// DefaultWidth is the health bar width used when Text.Width is not positive.
const DefaultWidth = 20

// Health bands, by fraction of max health.
const (
	BandHealthy  = "healthy"
	BandWounded  = "wounded"
	BandCritical = "critical"
)

// Band classifies health against maxHealth: above 80% is healthy, above 20%
// is wounded, anything else is critical.
//
// Precondition: maxHealth > 0.
func Band(health, maxHealth int64) string {
	switch {
	case health*5 > maxHealth*4:
		return BandHealthy
	case health*5 > maxHealth:
		return BandWounded
	default:
		return BandCritical
	}
}

var bandColor = map[string]string{
	BandHealthy:  Green,
	BandWounded:  Yellow,
	BandCritical: Red,
}

// Text renders snapshots. The zero value renders without color at DefaultWidth.
type Text struct {
	Width int
	Color bool
}

// Effects carries per-side applied effects for highlighting. Either slice may
// be nil.
type Effects struct {
	SideA content.AppliedEffects
	SideB content.AppliedEffects
}

// Render draws both forces of snap. Columns touched by a hero or creature
// effect are marked with '*'.
//
// Postcondition: Returns a multi-line string; snap is not modified.
func (t Text) Render(snap battle.Snapshot, fx Effects) string {
	var b strings.Builder
	b.WriteString(t.paint(Bold, fmt.Sprintf("Round %d", snap.Round)))
	b.WriteString("\n")
	t.force(&b, snap.SideA, fx.SideA)
	t.force(&b, snap.SideB, fx.SideB)
	return b.String()
}

func (t Text) force(b *strings.Builder, f battle.ForceSnapshot, fx content.AppliedEffects) {
	b.WriteString(t.paint(BrightYellow, f.Name))
	fmt.Fprintf(b, " (%d remaining)\n", f.TotalRemaining())

	nameWidth := 0
	for _, c := range f.Columns {
		nameWidth = max(nameWidth, len(c.Name))
	}
	for i, c := range f.Columns {
		marker := " "
		if i < len(fx) && fx[i].Highlighted() {
			marker = t.paint(BgMagenta, "*")
		}
		fmt.Fprintf(b, "  %s %-*s %s %d/%d x%d\n",
			marker, nameWidth, c.Name, t.bar(c), c.Health, c.MaxHealth, c.Remaining)
	}
}

func (t Text) bar(c battle.ColumnSnapshot) string {
	width := t.Width
	if width <= 0 {
		width = DefaultWidth
	}
	if c.Remaining == 0 || c.MaxHealth <= 0 {
		return "[" + t.paint(Dim, strings.Repeat(".", width)) + "]"
	}
	filled := int(c.Health * int64(width) / c.MaxHealth)
	filled = min(max(filled, 0), width)
	if filled == 0 && c.Health > 0 {
		filled = 1
	}
	band := Band(c.Health, c.MaxHealth)
	return "[" + t.paint(bandColor[band], strings.Repeat("#", filled)) + strings.Repeat("-", width-filled) + "]"
}

func (t Text) paint(color, s string) string {
	if !t.Color {
		return s
	}
	return Colorize(color, s)
}
