package battle

// ApplyFatigue decays attack and defense of every column in f, living or not,
// by percentage. Repeated calls compound: 100 -> 90 -> 81 at 10%.
//
// Precondition: 0 <= percentage <= 100.
// Postcondition: every column has Attack >= 1 and Defense >= 1.
func ApplyFatigue(f *Force, percentage int) {
	for _, c := range f.columns {
		c.Attack = decay(c.Attack, percentage)
		c.Defense = decay(c.Defense, percentage)
	}
}

func decay(v int64, percentage int) int64 {
	v = v * int64(100-percentage) / 100
	if v < 1 {
		return 1
	}
	return v
}
