package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func newTestSessionService(t *testing.T) (*SessionService, *mockSessionStore, *mockGameRepo, *recordingBroadcaster) {
	t.Helper()
	store := newMockSessionStore()
	games := newMockGameRepo()
	b := &recordingBroadcaster{}
	return NewSessionService(newTestEngineService(t), store, games, b), store, games, b
}

func TestSessionService_CreateResolvesPieces(t *testing.T) {
	svc, store, _, _ := newTestSessionService(t)
	sess, err := svc.Create(context.Background(), "", nil, 42)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := tetris.Decode(tetris.DefaultRules(), sess.Position)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.Current.Valid() || !pos.Next.Valid() {
		t.Errorf("position %q has unresolved pieces", sess.Position)
	}
	if sess.Seed != 42 || sess.Moves != 0 || sess.GameOver {
		t.Errorf("session = %+v", sess)
	}
	if stored, _ := store.GetSession(context.Background(), sess.ID); stored == nil {
		t.Error("session not stored")
	}
}

func TestSessionService_CreateRejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	if _, err := svc.Create(context.Background(), "garbage", nil, 1); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("bad position error = %v", err)
	}
	w := json.RawMessage(`{"input_nodes":[-1,-2],"output_nodes":[0],"node_evals":[]}`)
	if _, err := svc.Create(context.Background(), "", w, 1); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("bad weights error = %v", err)
	}
}

func TestSessionService_StepAdvances(t *testing.T) {
	svc, store, _, b := newTestSessionService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, "", nil, 7)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		res, err := svc.Step(ctx, sess.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Decision == nil {
			t.Fatalf("step %d made no move", i)
		}
		if res.Session.Moves != i {
			t.Errorf("step %d: moves = %d", i, res.Session.Moves)
		}
	}
	stored, _ := store.GetSession(ctx, sess.ID)
	if stored.Moves != 5 {
		t.Errorf("stored moves = %d, want 5", stored.Moves)
	}
	if got := b.count(EventMovePlayed); got != 5 {
		t.Errorf("move_played events = %d, want 5", got)
	}
	ev := b.events[4].data.(model.MoveEvent)
	if ev.Ply != 5 || ev.Position != stored.Position || ev.GameID != sess.ID {
		t.Errorf("last event = %+v", ev)
	}
}

func TestSessionService_SameSeedSameGame(t *testing.T) {
	play := func() string {
		svc, _, _, _ := newTestSessionService(t)
		ctx := context.Background()
		sess, err := svc.Create(ctx, "", nil, 1234)
		if err != nil {
			t.Fatal(err)
		}
		var res *StepResult
		for i := 0; i < 6; i++ {
			if res, err = svc.Step(ctx, sess.ID); err != nil {
				t.Fatal(err)
			}
		}
		return res.Session.Position
	}
	if a, b := play(), play(); a != b {
		t.Errorf("same seed diverged:\n%s\n%s", a, b)
	}
}

func TestSessionService_GameOverRecordsGame(t *testing.T) {
	svc, _, games, b := newTestSessionService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, blockedSpawn(svc.engine.Rules()), nil, 3)
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Step(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Session.GameOver || res.Decision != nil {
		t.Fatalf("result = %+v", res)
	}
	g, _ := games.FindByID(ctx, sess.ID)
	if g == nil || g.Source != model.SourceSession || !g.GameOver {
		t.Errorf("recorded game = %+v", g)
	}
	if b.count(EventGameEnded) != 1 {
		t.Errorf("game_ended events = %d, want 1", b.count(EventGameEnded))
	}

	if _, err := svc.Step(ctx, sess.ID); !errors.Is(err, ErrSessionOver) {
		t.Errorf("step after game over: %v", err)
	}
}

func TestSessionService_NotFound(t *testing.T) {
	svc, _, _, _ := newTestSessionService(t)
	ctx := context.Background()
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get error = %v", err)
	}
	if _, err := svc.Step(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Step error = %v", err)
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Delete error = %v", err)
	}
}

func TestSessionService_Delete(t *testing.T) {
	svc, store, _, _ := newTestSessionService(t)
	ctx := context.Background()
	sess, _ := svc.Create(ctx, "", nil, 1)
	if err := svc.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetSession(ctx, sess.ID); got != nil {
		t.Error("session survived delete")
	}
}

func TestSessionService_ConcurrentStepsSerialize(t *testing.T) {
	svc, store, _, b := newTestSessionService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, "", nil, 11)
	if err != nil {
		t.Fatal(err)
	}

	const steps = 8
	var wg sync.WaitGroup
	errs := make(chan error, steps)
	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Step(ctx, sess.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("step: %v", err)
	}

	stored, _ := store.GetSession(ctx, sess.ID)
	if stored.Moves != steps {
		t.Errorf("stored moves = %d, want %d", stored.Moves, steps)
	}

	b.mu.Lock()
	var plies []int
	var last model.MoveEvent
	for _, e := range b.events {
		if e.eventType == EventMovePlayed {
			ev := e.data.(model.MoveEvent)
			plies = append(plies, ev.Ply)
			if ev.Ply == steps {
				last = ev
			}
		}
	}
	b.mu.Unlock()
	sort.Ints(plies)
	for i, p := range plies {
		if p != i+1 {
			t.Fatalf("broadcast plies = %v, want 1..%d once each", plies, steps)
		}
	}
	if len(plies) != steps {
		t.Errorf("broadcast %d moves, want %d", len(plies), steps)
	}
	if last.Position != stored.Position {
		t.Errorf("last broadcast position %q differs from stored %q", last.Position, stored.Position)
	}
	if n := svc.locks.len(); n != 0 {
		t.Errorf("%d session locks left behind", n)
	}
}
