package service

import (
	"context"

	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/repository"
)

// DefaultListLimit is used when a listing request gives no limit.
const DefaultListLimit = 20

// GameService reads finished games.
type GameService struct {
	games repository.GameRepository
}

// NewGameService creates a GameService.
func NewGameService(games repository.GameRepository) *GameService {
	return &GameService{games: games}
}

// Get returns a game or ErrGameNotFound.
func (s *GameService) Get(ctx context.Context, id string) (*model.Game, error) {
	g, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// ListTop returns the best-scoring games.
func (s *GameService) ListTop(ctx context.Context, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	games, err := s.games.ListTop(ctx, limit)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []model.Game{}
	}
	return games, nil
}
