package tpi

import (
	"testing"

	"github.com/freeeve/blockfall/pkg/tetris"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line string
		want Info
	}{
		{"info depth 2 nodes 1500 score 0.125 tthits 40", Info{Depth: 2, Nodes: 1500, Score: 0.125, TTHits: 40}},
		{"info depth 1 nodes 34 score -1e+06 tthits 0", Info{Depth: 1, Nodes: 34, Score: -1e6}},
		{"info nodes 7", Info{Nodes: 7}},
		{"info", Info{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := parseInfo(tt.line); got != tt.want {
				t.Errorf("parseInfo(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseBestMove(t *testing.T) {
	tests := []struct {
		line    string
		none    bool
		x, y, r int
		actions int
		wantErr bool
	}{
		{line: "bestmove 3 18 1 cw,drop,drop", x: 3, y: 18, r: 1, actions: 3},
		{line: "bestmove 4 0 0 -", x: 4, y: 0, r: 0, actions: 0},
		{line: "bestmove none", none: true},
		{line: "bestmove 3 18", wantErr: true},
		{line: "bestmove a 18 1 drop", wantErr: true},
		{line: "bestmove 3 18 1 hover", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var sr SearchResult
			err := parseBestMove(tt.line, &sr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if sr.None != tt.none || sr.X != tt.x || sr.Y != tt.y || sr.Rot != tt.r || len(sr.Actions) != tt.actions {
				t.Errorf("parsed %+v", sr)
			}
		})
	}
}

func TestParseGameResult(t *testing.T) {
	res, err := parseGameResult("gameresult score 4400 lines 30 moves 120")
	if err != nil {
		t.Fatal(err)
	}
	if *res != (GameResult{Score: 4400, Lines: 30, Moves: 120}) {
		t.Errorf("result = %+v", res)
	}

	res, err = parseGameResult("gameresult none")
	if err != nil || res != nil {
		t.Errorf("none = %+v, %v", res, err)
	}

	for _, bad := range []string{"gameresult", "gameresult score x lines 1 moves 1", "gameresult lines 1 score 2 moves 3"} {
		if _, err := parseGameResult(bad); err == nil {
			t.Errorf("parseGameResult(%q) succeeded", bad)
		}
	}
}

func TestParseEngineOption(t *testing.T) {
	opt := parseEngineOption("option name Randomizer type combo default nes var nes var norepeat var weighted")
	if opt.Name != "Randomizer" || opt.Type != "combo" || opt.Default != "nes" || len(opt.Vars) != 3 {
		t.Errorf("option = %+v", opt)
	}
	opt = parseEngineOption("option name Seed type spin default 0")
	if opt.Name != "Seed" || opt.Default != "0" || opt.Min != "" {
		t.Errorf("option = %+v", opt)
	}
}

func TestVerify(t *testing.T) {
	rules := tetris.DefaultRules()
	pos := tetris.EmptyPosition(rules, tetris.I, tetris.O)
	m := tetris.Move{Kind: tetris.I, X: 0, Y: 18, Rot: 1}
	actions, err := rules.Path(&pos.Board, m)
	if err != nil {
		t.Fatal(err)
	}

	good := &SearchResult{X: 0, Y: 18, Rot: 1, Actions: actions}
	if err := Verify(rules, &pos, good); err != nil {
		t.Errorf("Verify: %v", err)
	}

	short := &SearchResult{X: 0, Y: 18, Rot: 1, Actions: actions[:len(actions)-1]}
	if err := Verify(rules, &pos, short); err == nil {
		t.Error("truncated actions verified")
	}

	if err := Verify(rules, &pos, &SearchResult{None: true}); err == nil {
		t.Error("none result verified")
	}
}
