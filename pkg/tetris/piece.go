// Package tetris models the falling-block board, its pieces, and the
// rules an agent needs to search over it: placement, line clears,
// incremental Zobrist hashing, reachability-aware move generation and
// action path synthesis.
package tetris

import (
	"fmt"
	"strings"
)

// Kind identifies one of the seven piece kinds. The zero value None marks an
// empty board cell or an unresolved upcoming piece.
type Kind uint8

const (
	None Kind = iota
	I
	O
	J
	L
	S
	T
	Z
)

// NumKinds is the number of distinct piece kinds.
const NumKinds = 7

// AllKinds lists the piece kinds in canonical order. Move generation and
// search iterate in this order, which keeps results reproducible.
var AllKinds = [NumKinds]Kind{I, O, J, L, S, T, Z}

// kindToChar maps a Kind to its TPN letter.
var kindToChar = map[Kind]byte{
	I:    'I',
	O:    'O',
	J:    'J',
	L:    'L',
	S:    'S',
	T:    'T',
	Z:    'Z',
	None: '-',
}

// charToKind maps a TPN letter back to a Kind.
var charToKind = map[byte]Kind{
	'I': I,
	'O': O,
	'J': J,
	'L': L,
	'S': S,
	'T': T,
	'Z': Z,
	'-': None,
}

// Valid reports whether k is one of the seven piece kinds.
func (k Kind) Valid() bool {
	return k >= I && k <= Z
}

func (k Kind) index() int {
	return int(k) - 1
}

func (k Kind) String() string {
	if c, ok := kindToChar[k]; ok {
		return string(c)
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// MarshalText encodes a kind as its letter.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindToChar[k]; !ok {
		return nil, fmt.Errorf("invalid piece kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a piece letter.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a single piece letter. "-" parses as None.
func ParseKind(s string) (Kind, error) {
	if len(s) != 1 {
		return None, fmt.Errorf("%w: piece %q", ErrMalformedEncoding, s)
	}
	k, ok := charToKind[s[0]]
	if !ok {
		return None, fmt.Errorf("%w: piece %q", ErrMalformedEncoding, s)
	}
	return k, nil
}

// Action is one primitive controller input.
type Action uint8

const (
	ActionNone Action = iota
	ActionLeft
	ActionRight
	ActionDrop
	ActionRotateCW
	ActionRotateCCW
)

var actionNames = [...]string{
	ActionNone:      "none",
	ActionLeft:      "left",
	ActionRight:     "right",
	ActionDrop:      "drop",
	ActionRotateCW:  "cw",
	ActionRotateCCW: "ccw",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", a)
}

// MarshalText encodes an action by name so JSON responses stay readable.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction parses an action name as produced by Action.String.
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// FormatActions joins actions into the comma-separated wire form.
func FormatActions(actions []Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, ",")
}

// ParseActions parses the comma-separated wire form. An empty string is an
// empty sequence.
func ParseActions(s string) ([]Action, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	actions := make([]Action, 0, len(parts))
	for _, p := range parts {
		a, err := ParseAction(p)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// Cell is one filled square of a shape, relative to the shape's top-left corner.
type Cell struct {
	X, Y int
}

// Shape is one rotation state of a piece: a W x H bounding box holding
// exactly four filled cells.
type Shape struct {
	W, H  int
	Cells [4]Cell
}

// Offset is a kick applied when rotating between two states.
type Offset struct {
	DX, DY int
}

// Pose locates a piece on the board by the top-left corner of its bounding
// box and its rotation index. Rows grow downward from 0.
type Pose struct {
	X, Y, Rot int
}

// Move is a placement of a piece kind at a lock pose.
type Move struct {
	Kind Kind `json:"kind"`
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Rot  int  `json:"rot"`
}

// Pose returns the move's board pose.
func (m Move) Pose() Pose {
	return Pose{X: m.X, Y: m.Y, Rot: m.Rot}
}

func (m Move) String() string {
	return fmt.Sprintf("%s@%d,%d/%d", m.Kind, m.X, m.Y, m.Rot)
}

// shape builds a Shape from rows drawn with '#' for filled cells.
func shape(rows ...string) Shape {
	s := Shape{W: len(rows[0]), H: len(rows)}
	n := 0
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			if row[x] != '#' {
				continue
			}
			if n == len(s.Cells) {
				panic("tetris: shape has more than four cells")
			}
			s.Cells[n] = Cell{X: x, Y: y}
			n++
		}
	}
	if n != len(s.Cells) {
		panic("tetris: shape has fewer than four cells")
	}
	return s
}

// pieceSpec holds the static description of one kind: its rotation states,
// the kick applied on each clockwise transition, and its spawn pose.
type pieceSpec struct {
	shapes []Shape
	kicks  []Offset
	spawn  Pose
}

// standardPieces returns the rotation tables indexed by Kind.index().
// kicks[r] is added to the pose when rotating clockwise out of state r and
// subtracted when rotating counter-clockwise into it.
func standardPieces() [NumKinds]pieceSpec {
	return [NumKinds]pieceSpec{
		int(I) - 1: {
			shapes: []Shape{
				shape("####"),
				shape("#", "#", "#", "#"),
			},
			kicks: []Offset{{2, -2}, {-2, 2}},
			spawn: Pose{X: 3, Y: 1},
		},
		int(O) - 1: {
			shapes: []Shape{
				shape("##", "##"),
			},
			kicks: []Offset{{0, 0}},
			spawn: Pose{X: 4, Y: 0},
		},
		int(J) - 1: {
			shapes: []Shape{
				shape("###", "..#"),
				shape(".#", ".#", "##"),
				shape("#..", "###"),
				shape("##", "#.", "#."),
			},
			kicks: []Offset{{0, -1}, {0, 0}, {1, 0}, {-1, 1}},
			spawn: Pose{X: 3, Y: 0},
		},
		int(L) - 1: {
			shapes: []Shape{
				shape("###", "#.."),
				shape("##", ".#", ".#"),
				shape("..#", "###"),
				shape("#.", "#.", "##"),
			},
			kicks: []Offset{{0, -1}, {0, 0}, {1, 0}, {-1, 1}},
			spawn: Pose{X: 3, Y: 0},
		},
		int(S) - 1: {
			shapes: []Shape{
				shape(".##", "##."),
				shape("#.", "##", ".#"),
			},
			kicks: []Offset{{1, -1}, {-1, 1}},
			spawn: Pose{X: 3, Y: 0},
		},
		int(T) - 1: {
			shapes: []Shape{
				shape("###", ".#."),
				shape(".#", "##", ".#"),
				shape(".#.", "###"),
				shape("#.", "##", "#."),
			},
			kicks: []Offset{{0, -1}, {0, 0}, {1, 0}, {-1, 1}},
			spawn: Pose{X: 3, Y: 0},
		},
		int(Z) - 1: {
			shapes: []Shape{
				shape("##.", ".##"),
				shape(".#", "##", "#."),
			},
			kicks: []Offset{{1, -1}, {-1, 1}},
			spawn: Pose{X: 3, Y: 0},
		},
	}
}
