// Command engine runs the search engine over stdin/stdout using TPI.
// Logs go to stderr; stdout carries only protocol lines.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/config"
	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/internal/protocol"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	logger.Init(os.Stderr)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	eval, err := bot.LoadEvaluator(cfg.WeightsPath, cfg.ONNXModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluator load failed")
	}

	engine, err := protocol.NewEngine(cfg.RulesConfig(), eval, cfg.SearchOptions(), cfg.Seed, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Engine setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("depth", cfg.SearchDepth).
		Str("randomizer", cfg.Randomizer).
		Bool("onnx", cfg.ONNXModelPath != "").
		Msg("Engine ready")
	if err := engine.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Engine stopped")
	}
}
