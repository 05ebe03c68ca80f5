package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warsim/internal/battle"
)

func col(name string, atk, def, hp int64, crit int, count int64) *battle.Column {
	return &battle.Column{
		Name:           name,
		Attack:         atk,
		Defense:        def,
		Health:         hp,
		MaxHealth:      hp,
		CriticalChance: crit,
		Remaining:      count,
	}
}

func mustForce(t *testing.T, name string, cols ...*battle.Column) *battle.Force {
	t.Helper()
	f, err := battle.NewForce(name, cols)
	require.NoError(t, err)
	return f
}

func TestNewForce_RejectsEmpty(t *testing.T) {
	_, err := battle.NewForce("empty", nil)
	assert.ErrorIs(t, err, battle.ErrEmptyForce)
}

func TestNewForce_RejectsNonPositiveMaxHealth(t *testing.T) {
	_, err := battle.NewForce("bad", []*battle.Column{col("Ghosts", 1, 1, 0, 0, 3)})
	assert.ErrorIs(t, err, battle.ErrInvalidColumn)
}

func TestNewForce_RejectsNilColumn(t *testing.T) {
	_, err := battle.NewForce("bad", []*battle.Column{nil})
	assert.ErrorIs(t, err, battle.ErrInvalidColumn)
}

func TestForce_DefeatedAndTotals(t *testing.T) {
	f := mustForce(t, "Humans", col("Infantry", 1, 1, 10, 0, 3), col("Archers", 1, 1, 10, 0, 0))
	assert.False(t, f.Defeated())
	assert.Equal(t, int64(3), f.TotalRemaining())
	f.Column(0).Remaining = 0
	assert.True(t, f.Defeated())
	assert.Equal(t, int64(0), f.Snapshot().TotalRemaining())
}

func TestForce_SnapshotIsACopy(t *testing.T) {
	f := mustForce(t, "Orcs", col("Trolls", 5, 5, 50, 0, 2))
	snap := f.Snapshot()
	f.Column(0).Remaining = 1
	assert.Equal(t, int64(2), snap.Columns[0].Remaining)
	assert.Equal(t, "Orcs", snap.Name)
}

func TestCritScheduler_EveryFourthAttackAt25Percent(t *testing.T) {
	s := battle.NewCritScheduler(25)
	require.Equal(t, int64(4), s.Threshold())
	for i := 1; i <= 40; i++ {
		crit := s.ShouldCrit()
		assert.Equal(t, i%4 == 0, crit, "attack %d", i)
		assert.Less(t, s.AttackCount(), s.Threshold())
	}
}

func TestCritScheduler_ZeroChanceNeverCrits(t *testing.T) {
	s := battle.NewCritScheduler(0)
	assert.True(t, s.Disabled())
	assert.Equal(t, int64(battle.NeverCrit), s.Threshold())
	for i := 0; i < 100_000; i++ {
		require.False(t, s.ShouldCrit())
	}
}

func TestCritScheduler_NegativeChanceDisabled(t *testing.T) {
	assert.True(t, battle.NewCritScheduler(-5).Disabled())
}

func TestCritScheduler_FullChanceAlwaysCrits(t *testing.T) {
	s := battle.NewCritScheduler(100)
	for i := 0; i < 10; i++ {
		assert.True(t, s.ShouldCrit())
	}
}

func TestCritScheduler_Property_ThresholdIsFloorOfHundredOverChance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chance := rapid.IntRange(1, 100).Draw(rt, "chance")
		s := battle.NewCritScheduler(chance)
		assert.Equal(rt, int64(100/chance), s.Threshold())

		attacks := rapid.IntRange(1, 500).Draw(rt, "attacks")
		crits := 0
		for i := 0; i < attacks; i++ {
			if s.ShouldCrit() {
				crits++
			}
			assert.Less(rt, s.AttackCount(), s.Threshold())
		}
		assert.Equal(rt, attacks/int(s.Threshold()), crits)
	})
}

func TestApplyFatigue_Compounds(t *testing.T) {
	f := mustForce(t, "Humans", col("Infantry", 100, 100, 10, 0, 1))
	battle.ApplyFatigue(f, 10)
	assert.Equal(t, int64(90), f.Column(0).Attack)
	battle.ApplyFatigue(f, 10)
	assert.Equal(t, int64(81), f.Column(0).Attack)
	assert.Equal(t, int64(81), f.Column(0).Defense)
}

func TestApplyFatigue_FloorsAtOneAndHitsDepletedColumns(t *testing.T) {
	f := mustForce(t, "Humans", col("Scouts", 1, 1, 10, 0, 0))
	battle.ApplyFatigue(f, 10)
	assert.Equal(t, int64(1), f.Column(0).Attack)
	assert.Equal(t, int64(1), f.Column(0).Defense)

	g := mustForce(t, "Orcs", col("Wolves", 50, 50, 10, 0, 0))
	battle.ApplyFatigue(g, 10)
	assert.Equal(t, int64(45), g.Column(0).Attack, "depleted columns still decay")
}

func TestApplyFatigue_Property_NeverBelowOne(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		atk := rapid.Int64Range(1, 1_000_000).Draw(rt, "attack")
		def := rapid.Int64Range(1, 1_000_000).Draw(rt, "defense")
		pct := rapid.IntRange(0, 100).Draw(rt, "pct")
		times := rapid.IntRange(1, 30).Draw(rt, "times")
		f, err := battle.NewForce("f", []*battle.Column{col("c", atk, def, 1, 0, 1)})
		require.NoError(rt, err)
		prev := atk
		for i := 0; i < times; i++ {
			battle.ApplyFatigue(f, pct)
			c := f.Column(0)
			assert.GreaterOrEqual(rt, c.Attack, int64(1))
			assert.GreaterOrEqual(rt, c.Defense, int64(1))
			assert.LessOrEqual(rt, c.Attack, prev)
			prev = c.Attack
		}
	})
}

func TestSelectTarget_RoundRobinSkipsDead(t *testing.T) {
	f := mustForce(t, "Orcs",
		col("A", 1, 1, 1, 0, 1),
		col("B", 1, 1, 1, 0, 0),
		col("C", 1, 1, 1, 0, 1),
	)
	var cur battle.Cursor
	idx, ok := battle.SelectTarget(f, &cur)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, cur.Next())

	idx, ok = battle.SelectTarget(f, &cur)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 0, cur.Next(), "cursor wraps")

	idx, ok = battle.SelectTarget(f, &cur)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestSelectTarget_NoLivingColumn(t *testing.T) {
	f := mustForce(t, "Orcs", col("A", 1, 1, 1, 0, 0), col("B", 1, 1, 1, 0, 0))
	var cur battle.Cursor
	idx, ok := battle.SelectTarget(f, &cur)
	assert.False(t, ok)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, cur.Next())
}

func TestSelectTarget_Property_FairWhenAllAlive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "n")
		cols := make([]*battle.Column, n)
		for i := range cols {
			cols[i] = col("c", 1, 1, 1, 0, 1)
		}
		f, err := battle.NewForce("f", cols)
		require.NoError(rt, err)
		var cur battle.Cursor
		warmup := rapid.IntRange(0, 20).Draw(rt, "warmup")
		for i := 0; i < warmup; i++ {
			battle.SelectTarget(f, &cur)
		}
		seen := make(map[int]bool, n)
		for i := 0; i < n; i++ {
			idx, ok := battle.SelectTarget(f, &cur)
			require.True(rt, ok)
			assert.False(rt, seen[idx], "index %d repeated before all were chosen", idx)
			seen[idx] = true
		}
		assert.Len(rt, seen, n)
	})
}

func TestConfig_DefaultIsValid(t *testing.T) {
	cfg := battle.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.FatigueInterval)
	assert.Equal(t, 10, cfg.FatiguePercent)
	assert.Equal(t, 10000, cfg.MaxRounds)
	assert.Equal(t, 5, cfg.MinDamagePercent)
	assert.Equal(t, 150, cfg.CritMultiplierPercent)
}

func TestConfig_ValidateReportsEveryViolation(t *testing.T) {
	cfg := battle.Config{FatigueInterval: 0, FatiguePercent: 101, MaxRounds: 0, MinDamagePercent: -1, CritMultiplierPercent: 99}
	err := cfg.Validate()
	require.ErrorIs(t, err, battle.ErrInvalidConfig)
	for _, want := range []string{"fatigue interval", "fatigue percent", "max rounds", "min damage percent", "crit multiplier"} {
		assert.Contains(t, err.Error(), want)
	}
}
