package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8009" {
		t.Errorf("Port = %q, want 8009", cfg.Port)
	}
	if cfg.SearchDepth != bot.DefaultDepth || cfg.TTCapacity != bot.DefaultTTCapacity {
		t.Errorf("search = %d/%d", cfg.SearchDepth, cfg.TTCapacity)
	}
	if cfg.Randomizer != "nes" || cfg.RepeatProbability != tetris.DefaultRepeatProbability {
		t.Errorf("randomizer = %s %g", cfg.Randomizer, cfg.RepeatProbability)
	}
	if cfg.GameOverScore != bot.DefaultGameOverScore {
		t.Errorf("GameOverScore = %g", cfg.GameOverScore)
	}
	if cfg.MaxMoves != bot.DefaultMaxMoves {
		t.Errorf("MaxMoves = %d", cfg.MaxMoves)
	}
	if cfg.Workers != 4 || cfg.APIKey != "" || cfg.CORSOrigins != "*" {
		t.Errorf("workers = %d api key = %q origins = %q", cfg.Workers, cfg.APIKey, cfg.CORSOrigins)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockfall.yaml")
	body := "PORT: \"9000\"\nSEARCH_DEPTH: 3\nRANDOMIZER: weighted\nREPEAT_PROBABILITY: 0.1\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SEARCH_DEPTH", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000 from file", cfg.Port)
	}
	if cfg.SearchDepth != 4 {
		t.Errorf("SearchDepth = %d, want 4 from env", cfg.SearchDepth)
	}
	rc := cfg.RulesConfig()
	if rc.Randomizer.Policy != tetris.PolicyWeighted || rc.Randomizer.RepeatProbability != 0.1 {
		t.Errorf("randomizer = %+v", rc.Randomizer)
	}
	if opts := cfg.SearchOptions(); opts.Depth != 4 {
		t.Errorf("SearchOptions depth = %d", opts.Depth)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SEARCH_DEPTH", "9"},
		{"SEARCH_DEPTH", "0"},
		{"TT_CAPACITY", "0"},
		{"RANDOMIZER", "bag7"},
		{"REPEAT_PROBABILITY", "1.5"},
		{"MAX_MOVES", "-1"},
		{"WORKERS", "0"},
		{"GAME_OVER_SCORE", "NaN"},
		{"GAME_OVER_SCORE", "-Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_GameOverScoreZero(t *testing.T) {
	t.Setenv("GAME_OVER_SCORE", "0")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.SearchOptions().GameOverScore; got != 0 {
		t.Errorf("SearchOptions GameOverScore = %g, want 0", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
