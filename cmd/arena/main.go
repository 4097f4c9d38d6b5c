// Command arena plays TPI engine binaries against the same seeded piece
// sequences and ranks them by score. The arena keeps the authoritative
// board and replays every reported action list before applying a move.
//
// Usage:
//
//	go run ./cmd/arena -engine ./bin/engine -engine ./bin/engine-old -n 10 -seed 3
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/config"
	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/pkg/tetris"
	"github.com/freeeve/blockfall/pkg/tpi"
)

type engineList []string

func (e *engineList) String() string     { return strings.Join(*e, ",") }
func (e *engineList) Set(v string) error { *e = append(*e, v); return nil }

func main() {
	var (
		engines    engineList
		configPath string
		numGames   int
		maxMoves   int
		depth      int
		seed       int64
		weights    string
		jsonOut    bool
	)
	flag.Var(&engines, "engine", "Engine binary (repeatable)")
	flag.StringVar(&configPath, "config", "", "optional config file (yaml, json or toml)")
	flag.IntVar(&numGames, "n", 4, "Games per engine")
	flag.IntVar(&maxMoves, "max-moves", 0, "Placements per game (0 = MAX_MOVES from config)")
	flag.IntVar(&depth, "depth", 0, "Depth option sent to every engine (0 = engine default)")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.StringVar(&weights, "weights", "", "Network export sent to every engine")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.Parse()

	logger.Init(os.Stderr)
	if len(engines) == 0 {
		log.Fatal().Msg("at least one -engine is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	if maxMoves <= 0 {
		maxMoves = cfg.MaxMoves
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var weightsDoc []byte
	if weights != "" {
		if weightsDoc, err = os.ReadFile(weights); err != nil {
			log.Fatal().Err(err).Msg("Read weights failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ref := &referee{rules: tetris.NewRules(cfg.RulesConfig()), maxMoves: maxMoves}
	var standings []*standing
	for _, path := range engines {
		st, err := runEngine(ctx, ref, path, cfg.Randomizer, depth, weightsDoc, seed, numGames)
		if err != nil {
			log.Error().Err(err).Str("engine", path).Msg("Engine disqualified")
		}
		standings = append(standings, st)
	}

	sort.SliceStable(standings, func(i, j int) bool { return standings[i].AvgScore > standings[j].AvgScore })
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(standings)
		return
	}
	fmt.Printf("\nStandings (%d games each, max %d moves, seed %d):\n", numGames, maxMoves, seed)
	for i, st := range standings {
		fmt.Printf("  %d. %-30s avg score %9.1f  avg lines %6.1f  (%d played, %d failed)\n",
			i+1, st.Engine, st.AvgScore, st.AvgLines, len(st.Games), st.Failed)
	}
}

// runEngine starts one engine and plays numGames seeds with it. A failed
// game counts against the engine; a broken engine stops early.
func runEngine(ctx context.Context, ref *referee, path, randomizer string, depth int, weights []byte, seed int64, numGames int) (*standing, error) {
	st := &standing{Engine: path}
	eng := tpi.NewEngine(path)
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := eng.Init(initCtx); err != nil {
		st.Failed = numGames
		return st, err
	}
	defer eng.Close()
	log.Info().Str("engine", path).Str("name", eng.ID.Name).Int("options", len(eng.Options)).Msg("Engine ready")

	eng.SetOption("Randomizer", randomizer)
	if depth > 0 {
		eng.SetOption("Depth", strconv.Itoa(depth))
	}
	if len(weights) > 0 {
		if err := eng.LoadWeights(weights); err != nil {
			st.Failed = numGames
			return st, err
		}
	}
	if err := eng.IsReady(ctx); err != nil {
		st.Failed = numGames
		return st, err
	}

	for i := 0; i < numGames; i++ {
		eng.NewGame()
		g, err := ref.play(ctx, eng, bot.SeedFor(seed, i))
		if err != nil {
			st.Failed = numGames - len(st.Games)
			return st, fmt.Errorf("game %d: %w", i+1, err)
		}
		st.add(g)
		log.Info().Str("engine", path).Int("game", i+1).Int64("score", g.Score).Int("moves", g.Moves).Msg("Game completed")
	}
	return st, nil
}
