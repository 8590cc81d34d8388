package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime parameters of the ranking engine. Tunables like
// decay cadence, salary weights and match RP values are configuration, not
// hard-coded constants.
type Config struct {
	DatabaseURL string
	RedisAddr   string
	ServerPort  int

	// Rating model.
	KFactor       float64
	FinalsKFactor float64

	// RP awarded per match result, by point type.
	RegularWinRP  int
	BlowoutWinRP  int
	LossRP        int
	BlowoutMargin int
	ForfeitWinRP  int
	ForfeitLossRP int

	// Decay sweep.
	DecayDays       int
	DecayRate       float64
	SweepBatchLimit int
	SweepInterval   time.Duration

	// Salary classifier.
	SalaryPerfWeight float64
	SalaryRPWeight   float64
	SalaryBaseValue  int
	RPDisplayCap     int

	// Cloudflare R2 (team logo storage). Optional: empty disables uploads.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL: dbURL,
		RedisAddr:   envOr("REDIS_ADDR", "localhost:6379"),
		ServerPort:  port,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if cfg.KFactor, err = floatEnv("RATING_K_FACTOR", 32); err != nil {
		return nil, err
	}
	if cfg.FinalsKFactor, err = floatEnv("RATING_FINALS_K_FACTOR", 48); err != nil {
		return nil, err
	}

	if cfg.RegularWinRP, err = intEnv("RP_REGULAR_WIN", 100); err != nil {
		return nil, err
	}
	if cfg.BlowoutWinRP, err = intEnv("RP_BLOWOUT_WIN", 125); err != nil {
		return nil, err
	}
	if cfg.LossRP, err = intEnv("RP_LOSS", 25); err != nil {
		return nil, err
	}
	if cfg.BlowoutMargin, err = intEnv("RP_BLOWOUT_MARGIN", 20); err != nil {
		return nil, err
	}
	if cfg.ForfeitWinRP, err = intEnv("RP_FORFEIT_WIN", 50); err != nil {
		return nil, err
	}
	if cfg.ForfeitLossRP, err = intEnv("RP_FORFEIT_LOSS", 0); err != nil {
		return nil, err
	}

	if cfg.DecayDays, err = intEnv("DECAY_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.DecayRate, err = floatEnv("DECAY_RATE", 0.10); err != nil {
		return nil, err
	}
	if cfg.DecayRate < 0 || cfg.DecayRate > 1 {
		return nil, fmt.Errorf("DECAY_RATE must be within [0, 1], got %v", cfg.DecayRate)
	}
	if cfg.SweepBatchLimit, err = intEnv("SWEEP_BATCH_LIMIT", 500); err != nil {
		return nil, err
	}
	sweepMinutes, err := intEnv("SWEEP_INTERVAL_MINUTES", 24*60)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = time.Duration(sweepMinutes) * time.Minute

	if cfg.SalaryPerfWeight, err = floatEnv("SALARY_PERF_WEIGHT", 0.7); err != nil {
		return nil, err
	}
	if cfg.SalaryRPWeight, err = floatEnv("SALARY_RP_WEIGHT", 0.3); err != nil {
		return nil, err
	}
	if cfg.SalaryBaseValue, err = intEnv("SALARY_BASE_VALUE", 1000); err != nil {
		return nil, err
	}
	if cfg.RPDisplayCap, err = intEnv("RP_DISPLAY_CAP", 5000); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
