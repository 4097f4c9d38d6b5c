package tetris

// Board is the playfield, indexed [row][column] with row 0 at the top.
// It is an array, so assignment copies it.
type Board [Height][Width]Kind

// At returns the cell at column x, row y.
func (b *Board) At(x, y int) Kind {
	return b[y][x]
}

// Collides reports whether s placed with its top-left corner at (x, y)
// leaves the board or overlaps a filled cell. The floor and both walls count
// as solid, and so does the space above row 0.
func (b *Board) Collides(s *Shape, x, y int) bool {
	if x < 0 || x > Width-s.W || y < 0 || y > Height-s.H {
		return true
	}
	for _, c := range s.Cells {
		if b[y+c.Y][x+c.X] != None {
			return true
		}
	}
	return false
}

// IsLockPose reports whether s fits at (x, y) and would collide one row lower.
func (b *Board) IsLockPose(s *Shape, x, y int) bool {
	return !b.Collides(s, x, y) && b.Collides(s, x, y+1)
}

func (b *Board) rowFull(y int) bool {
	for _, k := range b[y] {
		if k == None {
			return false
		}
	}
	return true
}

func (b *Board) rowEmpty(y int) bool {
	for _, k := range b[y] {
		if k != None {
			return false
		}
	}
	return true
}

// Filled counts occupied cells.
func (b *Board) Filled() int {
	n := 0
	for y := range Height {
		for _, k := range b[y] {
			if k != None {
				n++
			}
		}
	}
	return n
}

// topRow returns the first non-empty row at or below from, or Height.
func (b *Board) topRow(from int) int {
	for y := from; y < Height; y++ {
		if !b.rowEmpty(y) {
			return y
		}
	}
	return Height
}
