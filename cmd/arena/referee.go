package main

import (
	"context"
	"fmt"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/pkg/tetris"
	"github.com/freeeve/blockfall/pkg/tpi"
)

// player is the part of a TPI engine the referee drives.
type player interface {
	Position(tpn string)
	Go(ctx context.Context) (*tpi.SearchResult, error)
}

// gameOutcome is one engine's result on one seed.
type gameOutcome struct {
	Seed      int64  `json:"seed"`
	Score     int64  `json:"score"`
	Lines     int    `json:"lines"`
	Moves     int    `json:"moves"`
	ToppedOut bool   `json:"topped_out"`
	Final     string `json:"final"`
}

// referee owns the authoritative position. Every engine sees the same piece
// sequence for a given seed, and every reported move is replayed before it
// is applied.
type referee struct {
	rules    *tetris.Rules
	maxMoves int
}

func (r *referee) play(ctx context.Context, p player, seed int64) (gameOutcome, error) {
	rng := bot.NewRand(seed)
	pos := tetris.EmptyPosition(r.rules, tetris.None, tetris.None)
	pos.Current = r.rules.Sample(rng, tetris.None)
	pos.Next = r.rules.Sample(rng, pos.Current)

	out := gameOutcome{Seed: seed}
	for out.Moves < r.maxMoves {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p.Position(tetris.Encode(&pos))
		res, err := p.Go(ctx)
		if err != nil {
			return out, fmt.Errorf("move %d: %w", out.Moves+1, err)
		}
		if res.None {
			// The engine saw no legal placement.
			out.ToppedOut = true
			break
		}
		if err := tpi.Verify(r.rules, &pos, res); err != nil {
			return out, fmt.Errorf("move %d: %w", out.Moves+1, err)
		}
		next, alive := pos.Apply(r.rules, res.Move(pos.Current))
		pos = next
		out.Moves++
		if !alive {
			out.ToppedOut = true
			break
		}
		pos.Next = r.rules.Sample(rng, pos.Current)
	}
	out.Score, out.Lines, out.Final = pos.Score, pos.Lines, tetris.Encode(&pos)
	return out, nil
}

// standing aggregates one engine's games.
type standing struct {
	Engine   string        `json:"engine"`
	Games    []gameOutcome `json:"games"`
	Failed   int           `json:"failed"`
	AvgScore float64       `json:"avg_score"`
	AvgLines float64       `json:"avg_lines"`
}

func (s *standing) add(g gameOutcome) {
	s.Games = append(s.Games, g)
	var score, lines float64
	for _, g := range s.Games {
		score += float64(g.Score)
		lines += float64(g.Lines)
	}
	n := float64(len(s.Games))
	s.AvgScore, s.AvgLines = score/n, lines/n
}
