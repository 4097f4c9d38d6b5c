package main

import (
	"testing"

	"github.com/freeeve/blockfall/internal/bot"
)

func TestSummarize(t *testing.T) {
	results := []*bot.ArenaResult{
		{GameID: "a", Score: 100, Lines: 2, Moves: 10},
		nil,
		{GameID: "b", Score: 300, Lines: 6, Moves: 30, GameOver: true},
	}
	s := summarize(results, 1)
	if s.Completed != 2 || s.Errors != 1 || s.ToppedOut != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.AvgScore != 200 || s.AvgLines != 4 || s.AvgMoves != 20 {
		t.Errorf("averages = %g %g %g", s.AvgScore, s.AvgLines, s.AvgMoves)
	}
	if s.Best == nil || s.Best.GameID != "b" {
		t.Errorf("best = %+v", s.Best)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := summarize([]*bot.ArenaResult{nil, nil}, 2)
	if s.Completed != 0 || s.Best != nil || s.AvgScore != 0 {
		t.Errorf("summary = %+v", s)
	}
}
