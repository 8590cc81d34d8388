package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/upaleague/ranking-engine/config"
	"github.com/upaleague/ranking-engine/db"
	"github.com/upaleague/ranking-engine/handlers"
	"github.com/upaleague/ranking-engine/realtime"
	"github.com/upaleague/ranking-engine/repositories"
	api "github.com/upaleague/ranking-engine/routes"
	"github.com/upaleague/ranking-engine/services"
	"github.com/upaleague/ranking-engine/storage"
	"github.com/upaleague/ranking-engine/utils"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Redis backs the leaderboard cache. The engine runs without it, every
	// leaderboard read then falls back to Postgres.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, leaderboard reads fall back to postgres", slog.Any("error", err))
			redisClient = nil
		} else {
			logger.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		}
		cancel()
	}

	// Logo storage is optional: without R2 credentials uploads are rejected
	// but everything else works.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	hub := realtime.NewHub(logger)
	go hub.Run()

	txRunner := repositories.NewTxRunner(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	ledgerRepo := repositories.NewPostgresRPTransactionRepository(dbConn)
	rosterRepo := repositories.NewPostgresRosterRepository(dbConn)
	seedRepo := repositories.NewPostgresBracketSeedRepository(dbConn)
	tierRepo := repositories.NewPostgresSalaryTierRepository(dbConn)
	logger.Info("repositories initialized")

	locks := utils.NewKeyMutex()

	ratingService := services.NewRatingService(teamRepo, locks, logger)
	ledgerService := services.NewLedgerService(
		txRunner, ledgerRepo, teamRepo, playerRepo, rosterRepo, tournamentRepo,
		locks, logger, cfg.DecayDays, cfg.DecayRate, cfg.SweepBatchLimit,
	)
	standingsService := services.NewStandingsService(groupRepo, matchRepo, teamRepo, locks, logger)
	bracketService := services.NewBracketService(
		txRunner, seedRepo, matchRepo, tournamentRepo, standingsService, hub, logger,
	)
	leaderboardService := services.NewLeaderboardService(teamRepo, redisClient, logger)
	salaryService := services.NewSalaryService(
		playerRepo, matchRepo, tierRepo, logger,
		cfg.SalaryPerfWeight, cfg.SalaryRPWeight, cfg.SalaryBaseValue, cfg.RPDisplayCap, cfg.SweepBatchLimit,
	)
	matchService := services.NewMatchService(
		txRunner, matchRepo, teamRepo, rosterRepo,
		ratingService, ledgerService, standingsService, bracketService, leaderboardService,
		hub, logger,
		services.MatchRPConfig{
			KFactor:       cfg.KFactor,
			FinalsKFactor: cfg.FinalsKFactor,
			RegularWinRP:  cfg.RegularWinRP,
			BlowoutWinRP:  cfg.BlowoutWinRP,
			LossRP:        cfg.LossRP,
			BlowoutMargin: cfg.BlowoutMargin,
			ForfeitWinRP:  cfg.ForfeitWinRP,
			ForfeitLossRP: cfg.ForfeitLossRP,
		},
	)
	teamService := services.NewTeamService(teamRepo, uploader, logger)
	playerService := services.NewPlayerService(playerRepo, teamRepo, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, groupRepo, teamRepo, playerRepo, rosterRepo, logger,
	)
	logger.Info("services initialized")

	// Periodic maintenance: RP decay, salary reclassification and rank
	// recomputes run on one shared cadence.
	go runScheduler(ledgerService, salaryService, leaderboardService, ratingService, cfg.SweepInterval, logger)

	teamHandler := handlers.NewTeamHandler(teamService, playerService)
	playerHandler := handlers.NewPlayerHandler(playerService, salaryService, ledgerService)
	matchHandler := handlers.NewMatchHandler(matchService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, standingsService, matchService)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, ledgerService)
	adminHandler := handlers.NewAdminHandler(ledgerService, salaryService, leaderboardService, ratingService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		teamHandler,
		playerHandler,
		matchHandler,
		tournamentHandler,
		bracketHandler,
		leaderboardHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}

func runScheduler(
	ledger services.LedgerService,
	salary services.SalaryService,
	leaderboard services.LeaderboardService,
	rating services.RatingService,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("maintenance scheduler started", slog.Duration("interval", interval))

	for range ticker.C {
		ctx := context.Background()

		summary, err := ledger.ApplyDecay(ctx)
		if err != nil {
			logger.Error("scheduled decay sweep failed", slog.Any("error", err))
		} else {
			logger.Info("scheduled decay sweep finished",
				slog.Int("scanned", summary.Scanned),
				slog.Int("decayed", summary.Decayed),
				slog.Int("skipped", summary.Skipped),
				slog.Int("failed", summary.Failed),
			)
		}

		if _, err := salary.ReclassifyAll(ctx); err != nil {
			logger.Error("scheduled salary sweep failed", slog.Any("error", err))
		}
		if err := leaderboard.RecomputeGlobalRanks(ctx); err != nil {
			logger.Error("scheduled rank recompute failed", slog.Any("error", err))
		}
		if err := rating.NormalizeAll(ctx); err != nil {
			logger.Error("scheduled rating normalization failed", slog.Any("error", err))
		}
	}
}
