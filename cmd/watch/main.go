// Command watch draws a game in the terminal as it is played. By default it
// plays a local game with the configured searcher; with -url it follows a
// game on a running server over WebSocket.
//
// Usage:
//
//	go run ./cmd/watch -seed 7 -delay 100ms
//	go run ./cmd/watch -url "ws://localhost:8009/api/v1/ws?token=..." -game <id>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/config"
	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	seed := flag.Int64("seed", 0, "Piece seed for a local game (0 = random)")
	maxMoves := flag.Int("max-moves", 0, "Placements for a local game (0 = MAX_MOVES from config)")
	delay := flag.Duration("delay", 150*time.Millisecond, "Pause between local placements")
	url := flag.String("url", "", "WebSocket URL of a server, including ?token=")
	gameID := flag.String("game", "", "Game or session id to follow with -url")
	flag.Parse()

	// The terminal belongs to the viewer.
	logger.Init(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan frame)
	done := make(chan doneMsg, 1)
	var title string

	if *url != "" {
		if *gameID == "" {
			fmt.Fprintln(os.Stderr, "-game is required with -url")
			os.Exit(2)
		}
		title = "blockfall: watching " + *gameID
		go remoteFeed(ctx, *url, *gameID, frames, done)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		if *maxMoves <= 0 {
			*maxMoves = cfg.MaxMoves
		}
		eval, err := bot.LoadEvaluator(cfg.WeightsPath, cfg.ONNXModelPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		s, err := bot.NewSearcher(tetris.NewRules(cfg.RulesConfig()), eval, cfg.SearchOptions())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		title = fmt.Sprintf("blockfall: local game, seed %d, depth %d", *seed, cfg.SearchDepth)
		go localFeed(ctx, s, *seed, *maxMoves, *delay, frames, done)
	}

	p := tea.NewProgram(newViewModel(title, frames, done), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("Viewer failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
