package tetris

import "fmt"

// lineScores is the score awarded for clearing n lines with one placement.
var lineScores = [5]int64{0, 40, 100, 300, 1200}

// LineScore returns the score for clearing n lines at once.
func LineScore(n int) int64 {
	if n < 0 || n >= len(lineScores) {
		return 0
	}
	return lineScores[n]
}

// Position is a snapshot of a game: the board plus the pieces in play and the
// running score. It has value semantics; Apply returns a new Position and
// leaves the receiver untouched, so search branches never share state.
//
// Hash always equals the XOR of the Zobrist keys of every occupied cell and
// Top is the first occupied row (Height on an empty board). Both are kept up
// to date incrementally by Place and ClearLines.
type Position struct {
	Board   Board
	Current Kind
	Next    Kind
	Last    Kind
	Score   int64
	Lines   int
	Hash    uint64
	Top     int
}

// NewPosition builds a Position around b, computing its hash and top row.
func NewPosition(r *Rules, b Board, current, next Kind, score int64) Position {
	return Position{
		Board:   b,
		Current: current,
		Next:    next,
		Score:   score,
		Hash:    r.Hash(&b),
		Top:     b.topRow(0),
	}
}

// EmptyPosition returns a position with an empty board.
func EmptyPosition(r *Rules, current, next Kind) Position {
	return NewPosition(r, Board{}, current, next, 0)
}

// Place writes m's cells onto the board and folds them into the hash. It
// does not clear lines. Placing over an occupied cell is a defect in the
// caller and panics.
func (p *Position) Place(r *Rules, m Move) {
	s := r.Shape(m.Kind, m.Rot)
	for _, c := range s.Cells {
		x, y := m.X+c.X, m.Y+c.Y
		if p.Board[y][x] != None {
			panic(fmt.Sprintf("tetris: placing %v overlaps %v at (%d,%d)", m, p.Board[y][x], x, y))
		}
		p.Board[y][x] = m.Kind
		p.Hash ^= r.Key(x, y, m.Kind)
		if y < p.Top {
			p.Top = y
		}
	}
}

// ClearLines removes every full row, top to bottom, shifting the rows above
// each one down by one and updating the hash for every displaced cell. It
// returns the number of rows removed.
func (p *Position) ClearLines(r *Rules) int {
	cleared := 0
	for j := p.Top; j < Height; j++ {
		if !p.Board.rowFull(j) {
			continue
		}
		cleared++
		for y := j; y > p.Top; y-- {
			for x := range Width {
				old, moved := p.Board[y][x], p.Board[y-1][x]
				if old != None {
					p.Hash ^= r.Key(x, y, old)
				}
				if moved != None {
					p.Hash ^= r.Key(x, y, moved)
				}
				p.Board[y][x] = moved
			}
		}
		for x := range Width {
			if k := p.Board[p.Top][x]; k != None {
				p.Hash ^= r.Key(x, p.Top, k)
				p.Board[p.Top][x] = None
			}
		}
		p.Top++
	}
	if cleared > 0 {
		p.Top = p.Board.topRow(p.Top)
	}
	return cleared
}

// Terminal reports whether anything occupies the spawn rows.
func (p *Position) Terminal() bool {
	return p.Top < spawnRows
}

// Apply places m, clears lines, scores them and advances the piece queue:
// the next piece becomes current and the new next piece is unresolved. The
// second result is false when the placement tops out; the returned position
// is then terminal and must not be searched further.
func (p Position) Apply(r *Rules, m Move) (Position, bool) {
	p.Place(r, m)
	n := p.ClearLines(r)
	p.Score += LineScore(n)
	p.Lines += n
	p.Last = m.Kind
	p.Current = p.Next
	p.Next = None
	return p, !p.Terminal()
}

// Features are the board statistics fed to the evaluator.
type Features struct {
	Holes           float64
	Bumpiness       float64
	AggregateHeight float64
}

// NumFeatures is the length of Features.Vector.
const NumFeatures = 3

// Vector returns the features in evaluator input order.
func (f Features) Vector() []float64 {
	return []float64{f.Holes, f.Bumpiness, f.AggregateHeight}
}

// Heights returns each column's stack height measured from the floor.
func (p *Position) Heights() [Width]int {
	var h [Width]int
	for x := range Width {
		for y := p.Top; y < Height; y++ {
			if p.Board[y][x] != None {
				h[x] = Height - y
				break
			}
		}
	}
	return h
}

// Features computes holes, bumpiness and aggregate height. A hole is an
// empty cell directly under a filled one, plus every empty cell continuing
// straight down below it.
func (p *Position) Features() Features {
	var f Features
	start := max(p.Top, 1)
	for y := start; y < Height; y++ {
		for x := range Width {
			if p.Board[y-1][x] == None || p.Board[y][x] != None {
				continue
			}
			for d := y; d < Height && p.Board[d][x] == None; d++ {
				f.Holes++
			}
		}
	}
	h := p.Heights()
	for x := range Width {
		f.AggregateHeight += float64(h[x])
		if x > 0 {
			d := h[x] - h[x-1]
			if d < 0 {
				d = -d
			}
			f.Bumpiness += float64(d)
		}
	}
	return f
}
