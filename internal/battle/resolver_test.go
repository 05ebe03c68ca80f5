package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warsim/internal/battle"
)

func TestResolver_Damage(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	tests := []struct {
		power, defense, want int64
	}{
		{1000, 500, 500},
		{990, 50, 940},
		{100, 500, 5},  // 5% floor
		{10, 500, 1},   // floor rounds to 0, raised to 1
		{0, 0, 0},      // no attack
		{500, 500, 25}, // zero net damage uses the floor
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, r.Damage(tc.power, tc.defense), "power=%d defense=%d", tc.power, tc.defense)
	}
}

func TestResolver_Damage_Property_MinimumFloor(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	rapid.Check(t, func(rt *rapid.T) {
		power := rapid.Int64Range(1, 1<<40).Draw(rt, "power")
		defense := rapid.Int64Range(1, 1<<40).Draw(rt, "defense")
		assert.GreaterOrEqual(rt, r.Damage(power, defense), int64(1))
	})
}

func TestResolver_Attack_SkipsDepletedAttacker(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	atk := col("Dead", 10, 10, 10, 100, 0)
	sched := battle.NewCritScheduler(100)
	def := mustForce(t, "Orcs", col("Trolls", 1, 1, 10, 0, 5))
	var cur battle.Cursor

	res, err := r.Attack(atk, sched, def, &cur)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int64(0), sched.AttackCount())
	assert.Equal(t, int64(5), def.Column(0).Remaining)
}

func TestResolver_Attack_KillsOneUnitAndResetsHealth(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	atk := col("Knights", 100, 50, 1000, 0, 10)
	def := mustForce(t, "Orcs", col("Grunts", 10, 500, 100, 0, 100))
	var cur battle.Cursor

	res, err := r.Attack(atk, battle.NewCritScheduler(0), def, &cur)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Power)
	assert.Equal(t, int64(500), res.Damage)
	assert.True(t, res.UnitLost)
	assert.Equal(t, int64(99), res.Remaining)
	assert.Equal(t, "Grunts", res.Defender)
	assert.Equal(t, 0, res.TargetIndex)
	assert.Equal(t, int64(100), def.Column(0).Health, "health resets for the next unit")
}

func TestResolver_Attack_CriticalMultipliesPower(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	atk := col("Cavalry", 7, 1, 10, 100, 3)
	def := mustForce(t, "Orcs", col("Grunts", 1, 1, 1000, 0, 1))
	var cur battle.Cursor

	res, err := r.Attack(atk, battle.NewCritScheduler(100), def, &cur)
	require.NoError(t, err)
	assert.True(t, res.Critical)
	assert.Equal(t, int64(31), res.Power, "floor(21 * 1.5)")
	assert.Equal(t, int64(30), res.Damage)
	assert.False(t, res.UnitLost)
	assert.Equal(t, int64(970), def.Column(0).Health)
}

func TestResolver_Attack_DefeatedDefenderIsNotAnError(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	atk := col("Archers", 5, 1, 10, 0, 3)
	def := mustForce(t, "Orcs", col("Grunts", 1, 1, 10, 0, 0))
	var cur battle.Cursor

	res, err := r.Attack(atk, battle.NewCritScheduler(0), def, &cur)
	require.NoError(t, err)
	assert.True(t, res.NoTarget)
	assert.Equal(t, -1, res.TargetIndex)
}

func TestResolver_Attack_Property_AttritionMonotonic(t *testing.T) {
	r := battle.NewResolver(battle.DefaultConfig())
	rapid.Check(t, func(rt *rapid.T) {
		atk := col("a",
			rapid.Int64Range(1, 1000).Draw(rt, "atk"),
			1, 10, rapid.IntRange(0, 100).Draw(rt, "crit"),
			rapid.Int64Range(1, 1000).Draw(rt, "count"),
		)
		maxHP := rapid.Int64Range(1, 5000).Draw(rt, "max_hp")
		def := col("d", 1, rapid.Int64Range(1, 100_000).Draw(rt, "def"), maxHP, 0, rapid.Int64Range(1, 50).Draw(rt, "def_count"))
		force, err := battle.NewForce("d", []*battle.Column{def})
		require.NoError(rt, err)
		sched := battle.NewCritScheduler(atk.CriticalChance)
		var cur battle.Cursor

		attacks := rapid.IntRange(1, 50).Draw(rt, "attacks")
		for i := 0; i < attacks && def.Alive(); i++ {
			before := def.Remaining
			res, err := r.Attack(atk, sched, force, &cur)
			require.NoError(rt, err)
			assert.GreaterOrEqual(rt, res.Damage, int64(1))
			if res.UnitLost {
				assert.Equal(rt, before-1, def.Remaining)
				assert.Equal(rt, maxHP, def.Health)
			} else {
				assert.Equal(rt, before, def.Remaining)
				assert.Greater(rt, def.Health, int64(0))
				assert.Less(rt, def.Health, maxHP)
			}
		}
	})
}
