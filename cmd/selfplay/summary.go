package main

import "github.com/freeeve/blockfall/internal/bot"

// summary aggregates finished games. Failed games appear as nil results.
type summary struct {
	Completed int              `json:"completed"`
	Errors    int              `json:"errors"`
	ToppedOut int              `json:"topped_out"`
	AvgScore  float64          `json:"avg_score"`
	AvgLines  float64          `json:"avg_lines"`
	AvgMoves  float64          `json:"avg_moves"`
	Best      *bot.ArenaResult `json:"best,omitempty"`
}

func summarize(results []*bot.ArenaResult, errCount int) summary {
	s := summary{Errors: errCount}
	var score, lines, moves float64
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Completed++
		score += float64(r.Score)
		lines += float64(r.Lines)
		moves += float64(r.Moves)
		if r.GameOver {
			s.ToppedOut++
		}
		if s.Best == nil || r.Score > s.Best.Score {
			s.Best = r
		}
	}
	if s.Completed > 0 {
		n := float64(s.Completed)
		s.AvgScore, s.AvgLines, s.AvgMoves = score/n, lines/n, moves/n
	}
	return s
}
