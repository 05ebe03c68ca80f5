package battle

// Cursor is an attacking side's round-robin position in the opposing force.
// It persists across rounds for the life of one battle.
type Cursor struct {
	next int
}

// Next returns the index the next scan starts from.
func (c *Cursor) Next() int { return c.next }

func (c *Cursor) valid(size int) bool { return c.next >= 0 && c.next < size }

// SelectTarget scans f circularly from the cursor for the first living column.
//
// Precondition: cursor must be in [0, f.Len()).
// Postcondition: on success returns (index, true) and the cursor points at
// (index+1) mod f.Len(); when no column is alive returns (-1, false) and the
// cursor is unchanged.
func SelectTarget(f *Force, cursor *Cursor) (int, bool) {
	n := len(f.columns)
	for k := 0; k < n; k++ {
		i := (cursor.next + k) % n
		if f.columns[i].Alive() {
			cursor.next = (i + 1) % n
			return i, true
		}
	}
	return -1, false
}
