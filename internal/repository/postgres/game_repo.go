package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/freeeve/blockfall/internal/model"
)

// MaxListLimit caps ListTop.
const MaxListLimit = 100

// GameRepo handles finished-game records.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

const gameColumns = `id, source, seed, score, lines, moves, game_over, final_position, created_at`

// Create inserts a finished game and returns it with created_at filled in.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) (*model.Game, error) {
	var out model.Game
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (id, source, seed, score, lines, moves, game_over, final_position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+gameColumns,
		g.ID, g.Source, g.Seed, g.Score, g.Lines, g.Moves, g.GameOver, g.FinalPosition,
	).Scan(&out.ID, &out.Source, &out.Seed, &out.Score, &out.Lines, &out.Moves, &out.GameOver, &out.FinalPosition, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &out, nil
}

// FindByID returns a game, or nil when no game has that id.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	err := r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.Source, &g.Seed, &g.Score, &g.Lines, &g.Moves, &g.GameOver, &g.FinalPosition, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return &g, nil
}

// ListTop returns the highest-scoring games, newest first among ties.
func (r *GameRepo) ListTop(ctx context.Context, limit int) ([]model.Game, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY score DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.Source, &g.Seed, &g.Score, &g.Lines, &g.Moves, &g.GameOver, &g.FinalPosition, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
