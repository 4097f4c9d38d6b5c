package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/bot/neural"
	"github.com/freeeve/blockfall/pkg/tetris"
)

const tetrisReady = "//////////////////1LLLLLLLLL/1LLLLLLLLL/1LLLLLLLLL/1LLLLLLLLL/ I O 0"

func newTestEngineService(t *testing.T) *EngineService {
	t.Helper()
	opts := bot.DefaultOptions()
	opts.Depth = 1
	return NewEngineService(tetris.DefaultRules(), neural.DefaultNetwork(), opts, 2)
}

// blockedSpawn returns a position whose spawn rows are occupied, so no
// piece can enter the board.
func blockedSpawn(rules *tetris.Rules) string {
	var b tetris.Board
	for x := 0; x < tetris.Width; x++ {
		b[0][x] = tetris.Z
		b[1][x] = tetris.Z
	}
	pos := tetris.NewPosition(rules, b, tetris.O, tetris.I, 0)
	return tetris.Encode(&pos)
}

func TestEngineService_BestMoveTakesTetris(t *testing.T) {
	s := newTestEngineService(t)
	res, err := s.BestMove(context.Background(), tetrisReady, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.GameOver {
		t.Fatalf("result = %+v", res)
	}
	if res.Decision.Move != (tetris.Move{Kind: tetris.I, X: 0, Y: 18, Rot: 1}) {
		t.Errorf("move = %+v", res.Decision.Move)
	}
	after, err := tetris.Decode(s.Rules(), res.After)
	if err != nil {
		t.Fatal(err)
	}
	if after.Lines != 4 || after.Score != tetris.LineScore(4) || after.Current != tetris.O {
		t.Errorf("after = %s", res.After)
	}
}

func TestEngineService_BestMoveErrors(t *testing.T) {
	s := newTestEngineService(t)
	tests := []struct {
		name    string
		tpn     string
		weights string
		depth   int
		want    error
	}{
		{"malformed position", "not a position", "", 0, ErrInvalidPosition},
		{"unresolved piece", "////////////////////// - - 0", "", 0, ErrInvalidPosition},
		{"malformed weights", tetrisReady, `{"input_nodes":`, 0, ErrInvalidWeights},
		{"weights wrong size", tetrisReady, `{"input_nodes":[-1],"output_nodes":[0],"node_evals":[]}`, 0, ErrInvalidWeights},
		{"depth too deep", tetrisReady, "", 9, ErrInvalidDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w json.RawMessage
			if tt.weights != "" {
				w = json.RawMessage(tt.weights)
			}
			_, err := s.BestMove(context.Background(), tt.tpn, w, tt.depth)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEngineService_NoMoves(t *testing.T) {
	s := newTestEngineService(t)
	res, err := s.BestMove(context.Background(), blockedSpawn(s.Rules()), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Found || !res.GameOver || res.Decision != nil {
		t.Errorf("result = %+v", res)
	}
}

func TestEngineService_CustomWeights(t *testing.T) {
	s := newTestEngineService(t)
	w := json.RawMessage(`{"input_nodes":[-1,-2,-3],"output_nodes":[0],"node_evals":[[0,0,1,[[-1,-1],[-2,-0.2],[-3,-0.5]]]]}`)
	res, err := s.BestMove(context.Background(), "////////////////////// T S 0", w, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Decision.Depth != 2 || res.Decision.Move.Kind != tetris.T {
		t.Errorf("result = %+v", res.Decision)
	}
}

func TestEngineService_CanceledWhileWaiting(t *testing.T) {
	s := NewEngineService(tetris.DefaultRules(), neural.DefaultNetwork(), bot.DefaultOptions(), 1)
	if err := s.acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.BestMove(ctx, tetrisReady, nil, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
