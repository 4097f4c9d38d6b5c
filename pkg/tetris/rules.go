package tetris

import "errors"

// Board dimensions. Rows 0 and 1 form the spawn zone and must stay empty on
// any non-terminal board.
const (
	Width  = 10
	Height = 22

	spawnRows = 2
)

var (
	ErrMalformedEncoding = errors.New("malformed position encoding")
	ErrUnreachable       = errors.New("lock pose unreachable from spawn")
	ErrCollision         = errors.New("action collides with the board")
)

// DefaultZobristSeed seeds the Zobrist key table of DefaultRules.
const DefaultZobristSeed = 0xDEADBEEF12345678

// RulesConfig parameterizes NewRules.
type RulesConfig struct {
	ZobristSeed uint64
	Randomizer  RandomizerConfig
}

// DefaultRulesConfig returns the standard seed and the NES randomizer.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		ZobristSeed: DefaultZobristSeed,
		Randomizer:  DefaultRandomizerConfig(),
	}
}

// Rules is the immutable table set every board operation consults: piece
// shapes, kicks, spawn poses, Zobrist keys and the next-piece distribution.
// Build it once and share the pointer; nothing mutates it after NewRules.
type Rules struct {
	pieces     [NumKinds]pieceSpec
	keys       [Height][Width][NumKinds]uint64
	randomizer RandomizerConfig
}

// NewRules builds a rule set from cfg.
func NewRules(cfg RulesConfig) *Rules {
	r := &Rules{
		pieces:     standardPieces(),
		randomizer: cfg.Randomizer.normalized(),
	}
	rng := splitmix64{state: cfg.ZobristSeed}
	for y := range Height {
		for x := range Width {
			for k := range NumKinds {
				r.keys[y][x][k] = rng.next()
			}
		}
	}
	return r
}

// DefaultRules builds the standard rule set.
func DefaultRules() *Rules {
	return NewRules(DefaultRulesConfig())
}

// Rotations returns the number of rotation states of k.
func (r *Rules) Rotations(k Kind) int {
	return len(r.pieces[k.index()].shapes)
}

// Shape returns the rotation state rot of k.
func (r *Rules) Shape(k Kind, rot int) *Shape {
	return &r.pieces[k.index()].shapes[rot]
}

// Spawn returns the pose k enters the board at.
func (r *Rules) Spawn(k Kind) Pose {
	return r.pieces[k.index()].spawn
}

// Randomizer returns the configured next-piece distribution.
func (r *Rules) Randomizer() RandomizerConfig {
	return r.randomizer
}

// Key returns the Zobrist key for kind k occupying (x, y).
func (r *Rules) Key(x, y int, k Kind) uint64 {
	return r.keys[y][x][k.index()]
}

// Hash computes the Zobrist hash of b from scratch.
func (r *Rules) Hash(b *Board) uint64 {
	var h uint64
	for y := range Height {
		for x := range Width {
			if k := b[y][x]; k != None {
				h ^= r.keys[y][x][k.index()]
			}
		}
	}
	return h
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
