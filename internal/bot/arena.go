package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/repository"
	"github.com/freeeve/blockfall/pkg/tetris"
)

// ArenaConfig configures a single self-play game.
type ArenaConfig struct {
	GameID   string // empty = new uuid
	Seed     int64  // 0 = random
	MaxMoves int    // 0 = DefaultMaxMoves
	DryRun   bool   // skip DB writes
	Source   string
}

// ArenaResult describes the outcome of a completed self-play game.
type ArenaResult struct {
	GameID   string `json:"game_id"`
	Seed     int64  `json:"seed"`
	Score    int64  `json:"score"`
	Lines    int    `json:"lines"`
	Moves    int    `json:"moves"`
	GameOver bool   `json:"game_over"`
	Final    string `json:"final"`
}

// RunGame plays one seeded game from an empty board, records every ply to
// plies and saves the finished game to games. Pass nil repos for dry-run
// mode. onMove, if non-nil, sees each placement as it happens.
func RunGame(
	ctx context.Context,
	s *Searcher,
	cfg ArenaConfig,
	games repository.GameRepository,
	plies repository.PlyRecorder,
	onMove func(gameID string, rec MoveRecord),
) (*ArenaResult, error) {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Source == "" {
		cfg.Source = model.SourceSelfPlay
	}
	gameID := cfg.GameID
	if gameID == "" {
		gameID = uuid.NewString()
	}
	start := tetris.EmptyPosition(s.Rules(), tetris.None, tetris.None)

	var recordErr error
	res, err := s.PlayGame(ctx, start, NewRand(cfg.Seed), cfg.MaxMoves, func(rec MoveRecord) {
		if plies != nil && recordErr == nil {
			if err := plies.Record(PlyFromRecord(gameID, rec)); err != nil {
				recordErr = fmt.Errorf("record ply %d: %w", rec.Ply, err)
			}
		}
		if onMove != nil {
			onMove(gameID, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	if recordErr != nil {
		return nil, recordErr
	}

	result := &ArenaResult{
		GameID:   gameID,
		Seed:     cfg.Seed,
		Score:    res.Score,
		Lines:    res.Lines,
		Moves:    res.Moves,
		GameOver: res.GameOver,
		Final:    tetris.Encode(&res.Final),
	}

	if !cfg.DryRun && games != nil {
		_, err := games.Create(ctx, &model.Game{
			ID:            gameID,
			Source:        cfg.Source,
			Seed:          cfg.Seed,
			Score:         result.Score,
			Lines:         result.Lines,
			Moves:         result.Moves,
			GameOver:      result.GameOver,
			FinalPosition: result.Final,
		})
		if err != nil {
			return nil, fmt.Errorf("save game: %w", err)
		}
	}
	log.Info().Str("gameId", gameID).Int64("seed", cfg.Seed).Int64("score", result.Score).Msg("Arena game saved")
	return result, nil
}

// PlyFromRecord flattens a placement into a training row.
func PlyFromRecord(gameID string, rec MoveRecord) model.Ply {
	f := rec.Before.Features()
	m := rec.Decision.Move
	return model.Ply{
		GameID:     gameID,
		Ply:        rec.Ply,
		Position:   tetris.Encode(&rec.Before),
		Holes:      f.Holes,
		Bumpiness:  f.Bumpiness,
		Height:     f.AggregateHeight,
		Piece:      m.Kind.String(),
		X:          m.X,
		Y:          m.Y,
		Rot:        m.Rot,
		Actions:    tetris.FormatActions(rec.Decision.Actions),
		Eval:       rec.Decision.Score,
		Cleared:    rec.Cleared,
		ScoreAfter: rec.After.Score,
	}
}

// MoveEventFromRecord builds the streaming event for a placement.
func MoveEventFromRecord(gameID string, rec MoveRecord) model.MoveEvent {
	m := rec.Decision.Move
	return model.MoveEvent{
		GameID:   gameID,
		Ply:      rec.Ply,
		Piece:    m.Kind.String(),
		X:        m.X,
		Y:        m.Y,
		Rot:      m.Rot,
		Actions:  tetris.FormatActions(rec.Decision.Actions),
		Score:    rec.After.Score,
		Lines:    rec.After.Lines,
		Position: tetris.Encode(&rec.After),
		Eval:     rec.Decision.Score,
	}
}
