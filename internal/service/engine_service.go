package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/bot/neural"
	"github.com/freeeve/blockfall/pkg/tetris"
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidWeights  = errors.New("invalid weights")
	ErrInvalidDepth    = errors.New("invalid search depth")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionOver     = errors.New("session game is over")
	ErrGameNotFound    = errors.New("game not found")
)

// EngineService runs searches for API requests. Each request gets its own
// Searcher, so concurrent requests never share a transposition table; a
// semaphore bounds how many run at once.
type EngineService struct {
	rules *tetris.Rules
	eval  bot.Evaluator
	opts  bot.Options
	sem   chan struct{}
}

// NewEngineService creates an EngineService allowing up to workers
// concurrent searches (0 = one per CPU).
func NewEngineService(rules *tetris.Rules, eval bot.Evaluator, opts bot.Options, workers int) *EngineService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &EngineService{
		rules: rules,
		eval:  eval,
		opts:  opts,
		sem:   make(chan struct{}, workers),
	}
}

// Rules returns the shared rule set.
func (s *EngineService) Rules() *tetris.Rules { return s.rules }

// BestMoveResult is the answer to a single-position search.
type BestMoveResult struct {
	Found    bool          `json:"found"`
	Decision *bot.Decision `json:"decision,omitempty"`
	After    string        `json:"after,omitempty"`
	GameOver bool          `json:"game_over"`
}

// DecodePosition parses a TPN string against the service's rules.
func (s *EngineService) DecodePosition(tpn string) (tetris.Position, error) {
	pos, err := tetris.Decode(s.rules, tpn)
	if err != nil {
		return tetris.Position{}, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return pos, nil
}

// Searcher builds a searcher using weights when given, else the default
// evaluator. depth 0 keeps the configured depth.
func (s *EngineService) Searcher(weights json.RawMessage, depth int) (*bot.Searcher, error) {
	eval := s.eval
	if len(weights) > 0 {
		n, err := neural.ParseWeights(weights)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		eval = n
	}
	opts := s.opts
	if depth != 0 {
		if depth < 1 || depth > bot.MaxDepth {
			return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidDepth, depth, bot.MaxDepth)
		}
		opts.Depth = depth
	}
	searcher, err := bot.NewSearcher(s.rules, eval, opts)
	if err != nil {
		// The only evaluator-dependent failure is a probe rejecting the
		// feature vector, i.e. the weights do not fit the features.
		if len(weights) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		return nil, err
	}
	return searcher, nil
}

// acquire takes a search slot, giving up when ctx is done.
func (s *EngineService) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EngineService) release() { <-s.sem }

// Search runs one search with a slot held.
func (s *EngineService) Search(ctx context.Context, searcher *bot.Searcher, pos tetris.Position) (bot.Decision, bool, error) {
	if err := s.acquire(ctx); err != nil {
		return bot.Decision{}, false, err
	}
	defer s.release()
	d, ok, err := searcher.BestMove(pos)
	if errors.Is(err, bot.ErrUnresolvedPiece) {
		return d, false, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return d, ok, err
}

// BestMove decodes tpn, searches it and reports the chosen placement with
// the position it leads to.
func (s *EngineService) BestMove(ctx context.Context, tpn string, weights json.RawMessage, depth int) (*BestMoveResult, error) {
	pos, err := s.DecodePosition(tpn)
	if err != nil {
		return nil, err
	}
	searcher, err := s.Searcher(weights, depth)
	if err != nil {
		return nil, err
	}
	d, ok, err := s.Search(ctx, searcher, pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &BestMoveResult{GameOver: true}, nil
	}
	after, alive := pos.Apply(s.rules, d.Move)
	return &BestMoveResult{
		Found:    true,
		Decision: &d,
		After:    tetris.Encode(&after),
		GameOver: !alive,
	}, nil
}
