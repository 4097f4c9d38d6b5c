package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/repository"
)

// MaxSelfPlayGames caps the games one request may start.
const MaxSelfPlayGames = 16

// ErrTooManyGames rejects oversized self-play requests.
var ErrTooManyGames = errors.New("too many self-play games requested")

// SelfPlayGame identifies a started self-play game.
type SelfPlayGame struct {
	GameID string `json:"game_id"`
	Seed   int64  `json:"seed"`
}

// SelfPlayService runs self-play games in the background and streams their
// moves to subscribers. Games outlive the request that started them; they
// stop when the service's base context is canceled.
type SelfPlayService struct {
	base        context.Context
	engine      *EngineService
	games       repository.GameRepository
	plies       repository.PlyRecorder
	broadcaster Broadcaster
	wg          sync.WaitGroup

	mu      sync.Mutex
	running map[string]SelfPlayGame
}

// NewSelfPlayService creates a SelfPlayService. plies may be nil.
func NewSelfPlayService(base context.Context, engine *EngineService, games repository.GameRepository, plies repository.PlyRecorder, b Broadcaster) *SelfPlayService {
	if b == nil {
		b = NoopBroadcaster{}
	}
	return &SelfPlayService{
		base:        base,
		engine:      engine,
		games:       games,
		plies:       plies,
		broadcaster: b,
		running:     make(map[string]SelfPlayGame),
	}
}

// Start launches n games seeded from seed (0 = clock) and returns their ids
// immediately.
func (s *SelfPlayService) Start(n int, seed int64, maxMoves int) ([]SelfPlayGame, error) {
	if n < 1 {
		n = 1
	}
	if n > MaxSelfPlayGames {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyGames, n, MaxSelfPlayGames)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxMoves <= 0 {
		maxMoves = bot.DefaultMaxMoves
	}

	started := make([]SelfPlayGame, n)
	for i := range started {
		started[i] = SelfPlayGame{GameID: uuid.NewString(), Seed: bot.SeedFor(seed, i)}
	}
	s.mu.Lock()
	for _, g := range started {
		s.running[g.GameID] = g
	}
	s.mu.Unlock()

	for _, g := range started {
		s.wg.Add(1)
		go func(g SelfPlayGame) {
			defer s.wg.Done()
			defer s.forget(g.GameID)
			if err := s.run(g, maxMoves); err != nil {
				log.Error().Err(err).Str("gameId", g.GameID).Msg("Self-play game failed")
			}
		}(g)
	}
	return started, nil
}

func (s *SelfPlayService) run(g SelfPlayGame, maxMoves int) error {
	searcher, err := s.engine.Searcher(nil, 0)
	if err != nil {
		return err
	}
	if err := s.engine.acquire(s.base); err != nil {
		return err
	}
	defer s.engine.release()

	cfg := bot.ArenaConfig{GameID: g.GameID, Seed: g.Seed, MaxMoves: maxMoves, DryRun: s.games == nil}
	res, err := bot.RunGame(s.base, searcher, cfg, s.games, s.plies, func(gameID string, rec bot.MoveRecord) {
		s.broadcaster.BroadcastGameEvent(gameID, EventMovePlayed, bot.MoveEventFromRecord(gameID, rec))
	})
	if err != nil {
		return err
	}
	s.broadcaster.BroadcastGameEvent(g.GameID, EventGameEnded, res)
	return nil
}

// Running reports whether gameID is a self-play game still in progress.
func (s *SelfPlayService) Running(gameID string) (SelfPlayGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.running[gameID]
	return g, ok
}

func (s *SelfPlayService) forget(gameID string) {
	s.mu.Lock()
	delete(s.running, gameID)
	s.mu.Unlock()
}

// Wait blocks until every started game has finished.
func (s *SelfPlayService) Wait() {
	s.wg.Wait()
}
