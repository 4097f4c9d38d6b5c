package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/repository"
	"github.com/freeeve/blockfall/pkg/tetris"
)

// SessionService manages games an API client advances one move at a time.
// Live state sits in the SessionStore; finished games go to the GameRepository.
// Step and Delete on one session run one at a time within a process.
type SessionService struct {
	engine      *EngineService
	store       repository.SessionStore
	games       repository.GameRepository
	broadcaster Broadcaster
	locks       *keyedMutex
}

// NewSessionService creates a SessionService.
func NewSessionService(engine *EngineService, store repository.SessionStore, games repository.GameRepository, b Broadcaster) *SessionService {
	if b == nil {
		b = NoopBroadcaster{}
	}
	return &SessionService{engine: engine, store: store, games: games, broadcaster: b, locks: newKeyedMutex()}
}

// StepResult is the outcome of one session move.
type StepResult struct {
	Session  *model.Session `json:"session"`
	Decision *bot.Decision  `json:"decision,omitempty"`
	Cleared  int            `json:"cleared"`
}

// resolve fills unresolved Current and Next pieces. The draw depends only
// on the session seed and ply, so a session's piece sequence is replayable.
func (s *SessionService) resolve(pos *tetris.Position, seed int64, ply int) {
	rules := s.engine.Rules()
	rng := bot.NewRand(bot.SeedFor(seed, ply))
	if !pos.Current.Valid() {
		pos.Current = rules.Sample(rng, pos.Last)
	}
	if !pos.Next.Valid() {
		pos.Next = rules.Sample(rng, pos.Current)
	}
}

// Create starts a session from tpn, or from an empty board when tpn is
// empty. A zero seed draws one from the clock.
func (s *SessionService) Create(ctx context.Context, tpn string, weights json.RawMessage, seed int64) (*model.Session, error) {
	pos := tetris.EmptyPosition(s.engine.Rules(), tetris.None, tetris.None)
	if tpn != "" {
		var err error
		if pos, err = s.engine.DecodePosition(tpn); err != nil {
			return nil, err
		}
	}
	if len(weights) > 0 {
		// Reject unusable weights now rather than on the first step.
		if _, err := s.engine.Searcher(weights, 0); err != nil {
			return nil, err
		}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.resolve(&pos, seed, 0)

	now := time.Now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		Position:  tetris.Encode(&pos),
		Weights:   weights,
		Seed:      seed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SetSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	log.Info().Str("sessionId", sess.ID).Int64("seed", seed).Msg("Session created")
	return sess, nil
}

// Get returns a session or ErrSessionNotFound.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	defer s.locks.Lock(id)()
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, id)
}

// Step searches the session's position, applies the chosen move, draws the
// next preview piece and saves the session. When the game ends the session
// is marked over and a game record is written.
func (s *SessionService) Step(ctx context.Context, id string) (*StepResult, error) {
	defer s.locks.Lock(id)()
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.GameOver {
		return nil, ErrSessionOver
	}
	pos, err := s.engine.DecodePosition(sess.Position)
	if err != nil {
		return nil, err
	}
	searcher, err := s.engine.Searcher(sess.Weights, 0)
	if err != nil {
		return nil, err
	}
	s.resolve(&pos, sess.Seed, sess.Moves)

	d, ok, err := s.engine.Search(ctx, searcher, pos)
	if err != nil {
		return nil, err
	}

	result := &StepResult{Session: sess}
	alive := false
	if ok {
		next, stillAlive := pos.Apply(s.engine.Rules(), d.Move)
		alive = stillAlive
		sess.Moves++
		if alive {
			s.resolve(&next, sess.Seed, sess.Moves)
		}
		rec := bot.MoveRecord{Ply: sess.Moves, Before: pos, Decision: d, After: next, Cleared: next.Lines - pos.Lines}
		result.Decision = &d
		result.Cleared = rec.Cleared
		sess.Position = tetris.Encode(&next)
		s.broadcaster.BroadcastGameEvent(sess.ID, EventMovePlayed, bot.MoveEventFromRecord(sess.ID, rec))
		pos = next
	}
	sess.UpdatedAt = time.Now().UTC()

	if !alive {
		sess.GameOver = true
		if err := s.finish(ctx, sess, &pos); err != nil {
			return nil, err
		}
	}
	if err := s.store.SetSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return result, nil
}

func (s *SessionService) finish(ctx context.Context, sess *model.Session, final *tetris.Position) error {
	g := &model.Game{
		ID:            sess.ID,
		Source:        model.SourceSession,
		Seed:          sess.Seed,
		Score:         final.Score,
		Lines:         final.Lines,
		Moves:         sess.Moves,
		GameOver:      true,
		FinalPosition: sess.Position,
	}
	if s.games != nil {
		if _, err := s.games.Create(ctx, g); err != nil {
			return fmt.Errorf("save finished session: %w", err)
		}
	}
	s.broadcaster.BroadcastGameEvent(sess.ID, EventGameEnded, g)
	log.Info().Str("sessionId", sess.ID).Int64("score", g.Score).Int("moves", g.Moves).Msg("Session game over")
	return nil
}
