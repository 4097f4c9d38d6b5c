package main

import (
	"context"
	"errors"
	"testing"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/bot/neural"
	"github.com/freeeve/blockfall/pkg/tetris"
	"github.com/freeeve/blockfall/pkg/tpi"
)

// searchPlayer answers with the in-process searcher.
type searchPlayer struct {
	t        *testing.T
	searcher *bot.Searcher
	pos      tetris.Position
	cheat    bool
}

func (p *searchPlayer) Position(tpn string) {
	pos, err := tetris.Decode(p.searcher.Rules(), tpn)
	if err != nil {
		p.t.Fatalf("referee sent bad position %q: %v", tpn, err)
	}
	p.pos = pos
}

func (p *searchPlayer) Go(context.Context) (*tpi.SearchResult, error) {
	d, ok, err := p.searcher.BestMove(p.pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &tpi.SearchResult{None: true}, nil
	}
	res := &tpi.SearchResult{X: d.Move.X, Y: d.Move.Y, Rot: d.Move.Rot, Actions: d.Actions}
	if p.cheat {
		res.Actions = []tetris.Action{tetris.ActionDrop}
		res.X = (res.X + 1) % 3
	}
	return res, nil
}

func newSearchPlayer(t *testing.T, cheat bool) *searchPlayer {
	t.Helper()
	opts := bot.DefaultOptions()
	opts.Depth = 1
	s, err := bot.NewSearcher(tetris.DefaultRules(), neural.DefaultNetwork(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return &searchPlayer{t: t, searcher: s, cheat: cheat}
}

func TestReferee_PlaysToMaxMoves(t *testing.T) {
	ref := &referee{rules: tetris.DefaultRules(), maxMoves: 15}
	g, err := ref.play(context.Background(), newSearchPlayer(t, false), 5)
	if err != nil {
		t.Fatal(err)
	}
	if g.Moves != 15 || g.ToppedOut {
		t.Errorf("outcome = %+v", g)
	}
	final, err := tetris.Decode(ref.rules, g.Final)
	if err != nil {
		t.Fatal(err)
	}
	if final.Score != g.Score || final.Lines != g.Lines {
		t.Errorf("final %s disagrees with outcome %+v", g.Final, g)
	}
}

func TestReferee_SameSeedSamePieces(t *testing.T) {
	ref := &referee{rules: tetris.DefaultRules(), maxMoves: 10}
	a, err := ref.play(context.Background(), newSearchPlayer(t, false), 9)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ref.play(context.Background(), newSearchPlayer(t, false), 9)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same seed gave %+v and %+v", a, b)
	}
}

func TestReferee_RejectsUnverifiedMove(t *testing.T) {
	ref := &referee{rules: tetris.DefaultRules(), maxMoves: 10}
	if _, err := ref.play(context.Background(), newSearchPlayer(t, true), 1); err == nil {
		t.Error("expected verification error")
	}
}

func TestReferee_Cancelled(t *testing.T) {
	ref := &referee{rules: tetris.DefaultRules(), maxMoves: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ref.play(ctx, newSearchPlayer(t, false), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestStanding_Add(t *testing.T) {
	var st standing
	st.add(gameOutcome{Score: 100, Lines: 1})
	st.add(gameOutcome{Score: 300, Lines: 3})
	if st.AvgScore != 200 || st.AvgLines != 2 || len(st.Games) != 2 {
		t.Errorf("standing = %+v", st)
	}
}
