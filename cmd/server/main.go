package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/blockfall/internal/auth"
	"github.com/freeeve/blockfall/internal/bot"
	"github.com/freeeve/blockfall/internal/config"
	"github.com/freeeve/blockfall/internal/handler"
	"github.com/freeeve/blockfall/internal/logger"
	"github.com/freeeve/blockfall/internal/repository"
	"github.com/freeeve/blockfall/internal/repository/postgres"
	redisrepo "github.com/freeeve/blockfall/internal/repository/redis"
	"github.com/freeeve/blockfall/internal/service"
	"github.com/freeeve/blockfall/internal/store"
	"github.com/freeeve/blockfall/pkg/tetris"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	exportPlies := flag.Bool("export-plies", false, "write self-play plies to Parquet under PARQUET_DIR")
	flag.Parse()

	logger.Init(os.Stdout)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Info().Int("depth", cfg.SearchDepth).Str("randomizer", cfg.Randomizer).Msg("Config loaded")
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY is empty; token requests will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	gameRepo := postgres.NewGameRepo(db)

	var plies repository.PlyRecorder
	var batch *store.BatchWriter
	if *exportPlies {
		batch, err = store.NewBatchWriter(cfg.ParquetDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Parquet writer setup failed")
		}
		plies = batch
	}

	// Engine
	eval, err := bot.LoadEvaluator(cfg.WeightsPath, cfg.ONNXModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluator load failed")
	}
	rules := tetris.NewRules(cfg.RulesConfig())
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.APIKey)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	engineSvc := service.NewEngineService(rules, eval, cfg.SearchOptions(), cfg.Workers)
	sessionSvc := service.NewSessionService(engineSvc, redisClient, gameRepo, wsHub)
	selfPlaySvc := service.NewSelfPlayService(ctx, engineSvc, gameRepo, plies, wsHub)
	gameSvc := service.NewGameService(gameRepo)

	root := handler.NewRouter(handler.Handlers{
		Auth:     handler.NewAuthHandler(jwtMgr),
		Engine:   handler.NewEngineHandler(engineSvc),
		Sessions: handler.NewSessionHandler(sessionSvc),
		SelfPlay: handler.NewSelfPlayHandler(selfPlaySvc),
		Games:    handler.NewGameHandler(gameSvc),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		WS: handler.NewWSHandler(wsHub, jwtMgr, gameSvc, sessionSvc, selfPlaySvc),
	}, jwtMgr, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	// Stop running self-play games and flush their plies.
	cancel()
	selfPlaySvc.Wait()
	if batch != nil {
		path, rows, err := batch.Finalize()
		if err != nil {
			log.Error().Err(err).Msg("Parquet finalize failed")
		} else if rows > 0 {
			log.Info().Str("path", path).Int("rows", rows).Msg("Plies exported")
		}
	}
	log.Info().Msg("Server stopped")
}
