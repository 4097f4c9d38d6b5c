package repository

import (
	"context"

	"github.com/freeeve/blockfall/internal/model"
)

// GameRepository stores finished games.
type GameRepository interface {
	Create(ctx context.Context, g *model.Game) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListTop(ctx context.Context, limit int) ([]model.Game, error)
}

// SessionStore holds live sessions (Redis).
type SessionStore interface {
	SetSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// PlyRecorder receives every placement of a recorded game.
type PlyRecorder interface {
	Record(p model.Ply) error
}
