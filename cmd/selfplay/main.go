// Command selfplay plays seeded games with the local searcher, saves each
// finished game to Postgres and exports every placement to Parquet.
//
// Usage:
//
//	go run ./cmd/selfplay -n 32 -workers 8 -seed 7
//	go run ./cmd/selfplay -n 4 -dry-run -parquet ""
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/config"
	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/internal/repository"
	"github.com/freeeve/blockfall/internal/repository/postgres"
	"github.com/freeeve/blockfall/internal/store"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func main() {
	var (
		configPath string
		numGames   int
		workers    int
		maxMoves   int
		seed       int64
		parquetDir string
		dryRun     bool
		jsonOut    bool
	)

	flag.StringVar(&configPath, "config", "", "optional config file (yaml, json or toml)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 0, "Concurrency (0 = WORKERS from config)")
	flag.IntVar(&maxMoves, "max-moves", 0, "Placements per game (0 = MAX_MOVES from config)")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = SEED from config, then random)")
	flag.StringVar(&parquetDir, "parquet", "-", `Parquet output directory ("-" = PARQUET_DIR, "" = no export)`)
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.Parse()

	logger.Init(os.Stderr)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	if workers <= 0 {
		workers = cfg.Workers
	}
	if maxMoves <= 0 {
		maxMoves = cfg.MaxMoves
	}
	if seed == 0 {
		seed = cfg.Seed
	}
	if parquetDir == "-" {
		parquetDir = cfg.ParquetDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to DB (unless dry-run)
	var games repository.GameRepository
	if !dryRun {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer db.Close()
		games = postgres.NewGameRepo(db)
	}

	var batch *store.BatchWriter
	var plies repository.PlyRecorder
	if parquetDir != "" {
		batch, err = store.NewBatchWriter(parquetDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Parquet writer setup failed")
		}
		plies = batch
	}

	eval, err := bot.LoadEvaluator(cfg.WeightsPath, cfg.ONNXModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluator load failed")
	}
	rules := tetris.NewRules(cfg.RulesConfig())

	// Run games
	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each game owns its searcher and transposition table.
			searcher, err := bot.NewSearcher(rules, eval, cfg.SearchOptions())
			if err != nil {
				log.Error().Err(err).Msg("Searcher setup failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			gameSeed := int64(0)
			if seed != 0 {
				gameSeed = bot.SeedFor(seed, idx)
			}
			result, err := bot.RunGame(ctx, searcher, bot.ArenaConfig{
				Seed:     gameSeed,
				MaxMoves: maxMoves,
				DryRun:   dryRun,
			}, games, plies, nil)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Int64("score", result.Score).Int("lines", result.Lines).Int("moves", result.Moves).Msg("Game completed")
		}(i)
	}

	wg.Wait()

	if batch != nil {
		path, rows, err := batch.Finalize()
		if err != nil {
			log.Error().Err(err).Msg("Parquet finalize failed")
		} else if rows > 0 {
			log.Info().Str("path", path).Int("rows", rows).Msg("Plies exported")
		}
	}

	s := summarize(results, errCount)
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(struct {
			Summary summary            `json:"summary"`
			Results []*bot.ArenaResult `json:"results"`
		}{s, results})
		return
	}
	printSummary(s, maxMoves, dryRun)
}

func printSummary(s summary, maxMoves int, dryRun bool) {
	fmt.Printf("\nResults (%d games, max %d moves):\n", s.Completed, maxMoves)
	if s.Errors > 0 {
		fmt.Printf("  (%d games failed)\n", s.Errors)
	}
	if s.Completed == 0 {
		return
	}
	fmt.Printf("  avg score %.1f  avg lines %.1f  avg moves %.1f  topped out %d\n",
		s.AvgScore, s.AvgLines, s.AvgMoves, s.ToppedOut)
	fmt.Printf("  best: %s score %d (seed %d)\n", s.Best.GameID, s.Best.Score, s.Best.Seed)
	if !dryRun {
		fmt.Println("\nGames saved to database")
	}
}
