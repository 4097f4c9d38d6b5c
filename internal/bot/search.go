package bot

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/pkg/tetris"
)

// Search defaults.
const (
	DefaultDepth         = 2
	MaxDepth             = 4
	DefaultGameOverScore = -1e6
)

// ErrUnresolvedPiece is returned when asked to move without a current piece.
var ErrUnresolvedPiece = errors.New("current piece is unresolved")

// Evaluator scores a board feature vector; higher is better.
type Evaluator interface {
	Evaluate(features []float64) (float64, error)
}

// Options tunes a Searcher.
type Options struct {
	Depth         int     // plies, counting the root move
	TTCapacity    int     // transposition table slots
	GameOverScore float64 // value of a branch that tops out; zero is a valid choice
}

// DefaultOptions returns a two-ply search with the default table size.
func DefaultOptions() Options {
	return Options{
		Depth:         DefaultDepth,
		TTCapacity:    DefaultTTCapacity,
		GameOverScore: DefaultGameOverScore,
	}
}

// Decision is the outcome of one BestMove call.
type Decision struct {
	Move     tetris.Move     `json:"move"`
	Actions  []tetris.Action `json:"actions"`
	Score    float64         `json:"score"`
	Depth    int             `json:"depth"`
	Nodes    int             `json:"nodes"`
	TTHits   int             `json:"tt_hits"`
	TTMisses int             `json:"tt_misses"`
}

// Searcher runs depth-limited expectimax over placements. The known piece is
// maximized over; an unresolved piece becomes a chance node weighting each
// kind's best continuation by the randomizer's probability. Leaves are
// scored by the Evaluator and memoized in the Searcher's own transposition
// table, so a Searcher must not be used from more than one goroutine.
type Searcher struct {
	rules *tetris.Rules
	eval  Evaluator
	opts  Options
	tt    *TranspositionTable
	nodes int
}

// NewSearcher checks the options and probes eval once with an all-zero
// feature vector so a mis-shaped evaluator is rejected up front.
func NewSearcher(r *tetris.Rules, eval Evaluator, opts Options) (*Searcher, error) {
	if opts.Depth < 1 || opts.Depth > MaxDepth {
		return nil, fmt.Errorf("search depth %d out of range [1, %d]", opts.Depth, MaxDepth)
	}
	if _, err := eval.Evaluate(make([]float64, tetris.NumFeatures)); err != nil {
		return nil, fmt.Errorf("probe evaluator: %w", err)
	}
	return &Searcher{
		rules: r,
		eval:  eval,
		opts:  opts,
		tt:    NewTranspositionTable(opts.TTCapacity),
	}, nil
}

// Rules returns the rule set the searcher plays by.
func (s *Searcher) Rules() *tetris.Rules { return s.rules }

// Options returns the searcher's effective options.
func (s *Searcher) Options() Options { return s.opts }

// Reset empties the transposition table.
func (s *Searcher) Reset() { s.tt.Clear() }

// BestMove picks the placement of pos.Current with the highest expectimax
// value and synthesizes the actions that reach it. Among equal scores the
// first move in generation order wins. The second result is false when the
// current piece has no legal placement.
func (s *Searcher) BestMove(pos tetris.Position) (Decision, bool, error) {
	if !pos.Current.Valid() {
		return Decision{}, false, ErrUnresolvedPiece
	}
	s.nodes = 0
	s.tt.ResetStats()

	moves := s.rules.LegalMoves(&pos.Board, pos.Current)
	if len(moves) == 0 {
		return Decision{}, false, nil
	}

	best := math.Inf(-1)
	var bestMove tetris.Move
	for _, m := range moves {
		score, err := s.child(&pos, m, s.opts.Depth-1)
		if err != nil {
			return Decision{}, false, err
		}
		if score > best {
			best = score
			bestMove = m
		}
	}

	actions, err := s.rules.Path(&pos.Board, bestMove)
	if err != nil {
		return Decision{}, false, fmt.Errorf("path to %v: %w", bestMove, err)
	}

	hits, misses := s.tt.Stats()
	d := Decision{
		Move:     bestMove,
		Actions:  actions,
		Score:    best,
		Depth:    s.opts.Depth,
		Nodes:    s.nodes,
		TTHits:   hits,
		TTMisses: misses,
	}
	log.Debug().
		Str("move", bestMove.String()).
		Float64("score", best).
		Int("depth", d.Depth).
		Int("nodes", d.Nodes).
		Int("ttHits", hits).
		Int("ttMisses", misses).
		Msg("Search complete")
	return d, true, nil
}

func (s *Searcher) search(pos *tetris.Position, depth int) (float64, error) {
	s.nodes++
	if depth == 0 {
		return s.leaf(pos)
	}
	if pos.Current.Valid() {
		return s.maxOver(pos, pos.Current, depth)
	}

	total := 0.0
	for _, k := range tetris.AllKinds {
		v, err := s.maxOver(pos, k, depth)
		if err != nil {
			return 0, err
		}
		total += s.rules.Probability(k, pos.Last) * v
	}
	return total, nil
}

// maxOver returns the best continuation for placing k on pos.
func (s *Searcher) maxOver(pos *tetris.Position, k tetris.Kind, depth int) (float64, error) {
	moves := s.rules.LegalMoves(&pos.Board, k)
	if len(moves) == 0 {
		return s.opts.GameOverScore, nil
	}
	best := math.Inf(-1)
	for _, m := range moves {
		v, err := s.child(pos, m, depth-1)
		if err != nil {
			return 0, err
		}
		if v > best {
			best = v
		}
	}
	return best, nil
}

func (s *Searcher) child(pos *tetris.Position, m tetris.Move, depth int) (float64, error) {
	next, alive := pos.Apply(s.rules, m)
	if !alive {
		s.nodes++
		return s.opts.GameOverScore, nil
	}
	return s.search(&next, depth)
}

func (s *Searcher) leaf(pos *tetris.Position) (float64, error) {
	if v, ok := s.tt.Get(pos.Hash); ok {
		return v, nil
	}
	f := pos.Features()
	v, err := s.eval.Evaluate(f.Vector())
	if err != nil {
		return 0, fmt.Errorf("evaluate leaf: %w", err)
	}
	s.tt.Set(pos.Hash, v)
	return v, nil
}
