// Command import_selfplay reads self-play Parquet batches and imports the
// games they contain into Postgres, for batches recorded with -dry-run or
// on another machine.
//
// Usage:
//
//	go run ./cmd/import_selfplay/ --input selfplay/plies-*.parquet --db postgres://...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/repository"
	"github.com/freeeve/blockfall/internal/repository/postgres"
	"github.com/freeeve/blockfall/internal/store"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func main() {
	input := flag.String("input", "", "Parquet file or glob")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	flag.Parse()

	logger.Init(os.Stderr)
	if *input == "" {
		log.Fatal().Msg("--input is required")
	}
	if *dbURL == "" {
		log.Fatal().Msg("--db or DATABASE_URL is required")
	}
	paths, err := filepath.Glob(*input)
	if err != nil || len(paths) == 0 {
		log.Fatal().Str("input", *input).Msg("No input files")
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	rules := tetris.DefaultRules()
	gameRepo := postgres.NewGameRepo(db)

	imported := 0
	for _, path := range paths {
		rows, err := store.ReadPlies(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Skip file")
			continue
		}
		n, err := importRows(ctx, gameRepo, rules, rows)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Import incomplete")
		}
		imported += n
		log.Info().Str("path", path).Int("rows", len(rows)).Int("games", n).Msg("Imported file")
	}
	log.Info().Int("games", imported).Msg("Done")
}

// importRows saves one game per game id and returns how many were saved.
// Games already in the database are skipped.
func importRows(ctx context.Context, games repository.GameRepository, rules *tetris.Rules, rows []store.PlyRow) (int, error) {
	var errs []error
	imported := 0
	for _, plies := range groupByGame(rows) {
		g, err := gameFromPlies(rules, plies)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		existing, err := games.FindByID(ctx, g.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if existing != nil {
			log.Debug().Str("gameId", g.ID).Msg("Game already imported")
			continue
		}
		if _, err := games.Create(ctx, g); err != nil {
			errs = append(errs, fmt.Errorf("game %s: %w", g.ID, err))
			continue
		}
		imported++
	}
	return imported, errors.Join(errs...)
}

// groupByGame splits rows by game id, each group sorted by ply. Groups come
// back in order of first appearance.
func groupByGame(rows []store.PlyRow) [][]store.PlyRow {
	index := make(map[string]int)
	var groups [][]store.PlyRow
	for _, r := range rows {
		i, ok := index[r.GameID]
		if !ok {
			i = len(groups)
			index[r.GameID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	for _, g := range groups {
		sort.Slice(g, func(a, b int) bool { return g[a].Ply < g[b].Ply })
	}
	return groups
}

// gameFromPlies rebuilds the game record by replaying the last placement
// onto the last recorded position.
func gameFromPlies(rules *tetris.Rules, plies []store.PlyRow) (*model.Game, error) {
	last := plies[len(plies)-1]
	if int(last.Ply) != len(plies) {
		return nil, fmt.Errorf("game %s: %d rows but last ply is %d", last.GameID, len(plies), last.Ply)
	}
	pos, err := tetris.Decode(rules, last.Position)
	if err != nil {
		return nil, fmt.Errorf("game %s ply %d: %w", last.GameID, last.Ply, err)
	}
	kind, err := tetris.ParseKind(last.Piece)
	if err != nil {
		return nil, fmt.Errorf("game %s ply %d: %w", last.GameID, last.Ply, err)
	}
	m := tetris.Move{Kind: kind, X: int(last.X), Y: int(last.Y), Rot: int(last.Rot)}
	if kind != pos.Current || !rules.IsLegal(&pos.Board, m) {
		return nil, fmt.Errorf("game %s ply %d: illegal move %s", last.GameID, last.Ply, m)
	}
	final, alive := pos.Apply(rules, m)
	if final.Score != last.ScoreAfter {
		return nil, fmt.Errorf("game %s: replayed score %d, recorded %d", last.GameID, final.Score, last.ScoreAfter)
	}
	return &model.Game{
		ID:            last.GameID,
		Source:        model.SourceSelfPlay,
		Score:         final.Score,
		Lines:         final.Lines,
		Moves:         int(last.Ply),
		GameOver:      !alive,
		FinalPosition: tetris.Encode(&final),
	}, nil
}
