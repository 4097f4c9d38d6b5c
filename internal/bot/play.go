package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/pkg/tetris"
)

// DefaultMaxMoves caps a game when the caller passes no limit.
const DefaultMaxMoves = 500

// MoveRecord describes one applied placement.
type MoveRecord struct {
	Ply      int
	Before   tetris.Position
	Decision Decision
	After    tetris.Position
	Cleared  int
}

// GameResult is the outcome of PlayGame.
type GameResult struct {
	Score    int64           `json:"score"`
	Lines    int             `json:"lines"`
	Moves    int             `json:"moves"`
	GameOver bool            `json:"game_over"`
	Final    tetris.Position `json:"-"`
}

// PlayGame plays from pos until the game tops out or maxMoves placements
// have been made. Unresolved pieces are drawn from rng with the rules'
// randomizer, so a seeded rng replays the same game. onMove, if non-nil, is
// called after every placement.
func (s *Searcher) PlayGame(ctx context.Context, pos tetris.Position, rng tetris.Source, maxMoves int, onMove func(MoveRecord)) (GameResult, error) {
	if maxMoves <= 0 {
		maxMoves = DefaultMaxMoves
	}
	var res GameResult
	for res.Moves < maxMoves {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !pos.Current.Valid() {
			pos.Current = s.rules.Sample(rng, pos.Last)
		}
		if !pos.Next.Valid() {
			pos.Next = s.rules.Sample(rng, pos.Current)
		}

		d, ok, err := s.BestMove(pos)
		if err != nil {
			return res, fmt.Errorf("move %d: %w", res.Moves, err)
		}
		if !ok {
			res.GameOver = true
			break
		}

		next, alive := pos.Apply(s.rules, d.Move)
		res.Moves++
		if onMove != nil {
			onMove(MoveRecord{
				Ply:      res.Moves,
				Before:   pos,
				Decision: d,
				After:    next,
				Cleared:  next.Lines - pos.Lines,
			})
		}
		pos = next
		if !alive {
			res.GameOver = true
			break
		}
	}

	res.Score = pos.Score
	res.Lines = pos.Lines
	res.Final = pos
	log.Info().
		Int64("score", res.Score).
		Int("lines", res.Lines).
		Int("moves", res.Moves).
		Bool("gameOver", res.GameOver).
		Msg("Game finished")
	return res, nil
}
