package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/rankings?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 32.0, cfg.KFactor)
	assert.Equal(t, 30, cfg.DecayDays)
	assert.Equal(t, 0.10, cfg.DecayRate)
	assert.Equal(t, 0.7, cfg.SalaryPerfWeight)
	assert.Equal(t, 0.3, cfg.SalaryRPWeight)
	assert.Equal(t, 100, cfg.RegularWinRP)
	assert.Equal(t, 125, cfg.BlowoutWinRP)
	assert.Equal(t, 20, cfg.BlowoutMargin)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/rankings")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("DECAY_RATE", "0.25")
	t.Setenv("RATING_K_FACTOR", "24")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.ServerPort)
	assert.Equal(t, 0.25, cfg.DecayRate)
	assert.Equal(t, 24.0, cfg.KFactor)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/rankings")

	t.Setenv("SERVER_PORT", "-1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("DECAY_RATE", "1.5")
	_, err = Load()
	assert.Error(t, err)
}
