package battlelog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/battlelog"
)

func runBattle(t require.TestingT, sink battle.Sink, knights int64) []battle.Event {
	a, err := battle.NewForce("Humans", []*battle.Column{{
		Name: "Knights", Attack: 100, Defense: 50, Health: 1000, MaxHealth: 1000, CriticalChance: 10, Remaining: knights,
	}})
	require.NoError(t, err)
	b, err := battle.NewForce("Orcs", []*battle.Column{{
		Name: "Grunts", Attack: 10, Defense: 500, Health: 100, MaxHealth: 100, CriticalChance: 100, Remaining: 100,
	}})
	require.NoError(t, err)
	s, err := battle.NewSession(battle.DefaultConfig(), a, b, sink)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)
	return s.Events()
}

func TestNarrate(t *testing.T) {
	cases := []struct {
		event battle.Event
		want  string
	}{
		{
			battle.Event{Round: 5, Kind: battle.EventFatigue, Percent: 10},
			"Round 5: fatigue sets in, attack and defense fall by 10%",
		},
		{
			battle.Event{Round: 2, Kind: battle.EventCritical, Side: battle.SideA, Attacker: "Cavalry", Power: 15},
			"Round 2: side_a Cavalry lands a critical hit (power 15)",
		},
		{
			battle.Event{Round: 1, Kind: battle.EventAttack, Side: battle.SideB, Attacker: "Grunts", Defender: "Knights", Power: 990, Damage: 940},
			"Round 1: side_b Grunts strikes Knights for 940 damage (power 990)",
		},
		{
			battle.Event{Round: 1, Kind: battle.EventAttack, Side: battle.SideA, Attacker: "Knights", Defender: "Grunts", Power: 1000, Damage: 500, UnitLost: true, Remaining: 99},
			"Round 1: side_a Knights strikes Grunts for 500 damage (power 1000), a unit falls, 99 remain",
		},
		{
			battle.Event{Round: 9, Kind: battle.EventOutcome, Outcome: &battle.Outcome{Winner: battle.SideA, Reason: battle.ReasonAnnihilation, Round: 9, SideATotal: 4}},
			"Battle over in round 9: side_a wins by annihilation (4 vs 0 remaining)",
		},
		{
			battle.Event{Round: 3, Kind: battle.EventOutcome, Outcome: &battle.Outcome{Reason: battle.ReasonMaxRounds, Round: 3, SideATotal: 5, SideBTotal: 5}},
			"Battle over in round 3: draw by max_rounds (5 vs 5 remaining)",
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, battlelog.Narrate(tc.event))
	}
}

func TestNarrate_Status(t *testing.T) {
	snap := &battle.Snapshot{
		Round: 1,
		SideA: battle.ForceSnapshot{Name: "Humans", Columns: []battle.ColumnSnapshot{{Name: "Knights", Remaining: 10}}},
		SideB: battle.ForceSnapshot{Name: "Orcs", Columns: []battle.ColumnSnapshot{{Name: "Grunts", Remaining: 99}, {Name: "Trolls", Remaining: 3}}},
	}
	got := battlelog.Narrate(battle.Event{Round: 1, Kind: battle.EventStatus, Status: snap})
	assert.Equal(t, "Round 1: [Humans: Knights 10] [Orcs: Grunts 99, Trolls 3]", got)
}

func TestNarrate_EveryEventOfARealBattle(t *testing.T) {
	for _, e := range runBattle(t, nil, 10) {
		assert.NotEmpty(t, battlelog.Narrate(e))
	}
}

func TestZapSink_LogsStructuredEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	events := runBattle(t, battlelog.NewZapSink(zap.New(core)), 10)
	require.Equal(t, len(events), logs.Len())

	attacks := logs.FilterField(zap.String("kind", "attack")).All()
	require.NotEmpty(t, attacks)
	first := attacks[0].ContextMap()
	assert.Equal(t, "Knights", first["attacker"])
	assert.Equal(t, int64(500), first["damage"])
	assert.Equal(t, zapcore.InfoLevel, attacks[0].Level)

	statuses := logs.FilterField(zap.String("kind", "status")).All()
	require.NotEmpty(t, statuses)
	assert.Equal(t, zapcore.DebugLevel, statuses[0].Level)

	outcome := logs.FilterField(zap.String("kind", "outcome")).All()
	require.Len(t, outcome, 1)
	assert.Contains(t, outcome[0].Message, "Battle over")
}

func TestRecorderAndMulti(t *testing.T) {
	var r1, r2 battlelog.Recorder
	events := runBattle(t, battlelog.Multi(&r1, nil, &r2), 10)
	assert.Equal(t, events, r1.Events())
	assert.Equal(t, events, r2.Events())
	assert.Equal(t, len(events), r1.Len())

	got := r1.Events()
	got[0].Round = 999
	assert.NotEqual(t, 999, r1.Events()[0].Round, "Events returns a copy")
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battle.log")
	logger, w := battlelog.NewFileLogger(path, battlelog.Rotation{MaxSizeMB: 1})
	events := runBattle(t, battlelog.NewZapSink(logger), 10)
	require.NoError(t, logger.Sync())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, len(events))
	assert.Contains(t, lines[len(lines)-1], "Battle over")
}

func TestDigest(t *testing.T) {
	d1, err := battlelog.Digest(runBattle(t, nil, 10))
	require.NoError(t, err)
	d2, err := battlelog.Digest(runBattle(t, nil, 10))
	require.NoError(t, err)
	d3, err := battlelog.Digest(runBattle(t, nil, 11))
	require.NoError(t, err)

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)

	empty, err := battlelog.Digest(nil)
	require.NoError(t, err)
	assert.Len(t, empty, 64)
}

func TestProperty_DigestDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		knights := rapid.Int64Range(0, 40).Draw(rt, "knights")
		d1, err := battlelog.Digest(runBattle(rt, nil, knights))
		require.NoError(rt, err)
		d2, err := battlelog.Digest(runBattle(rt, nil, knights))
		require.NoError(rt, err)
		assert.Equal(rt, d1, d2)
	})
}
