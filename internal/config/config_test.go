package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
	assert.Equal(t, DefaultDatabaseDSN, cfg.DatabaseDSN)
	assert.Equal(t, DefaultEmbeddingDims, cfg.EmbeddingDims)
	require.NotNil(t, cfg.Scoring)
	assert.NoError(t, cfg.Scoring.Validate())
}

func TestApplySettings(t *testing.T) {
	cfg := Default()
	applySettings(cfg, map[string]interface{}{
		"READLENS_WORKER_PORT":          float64(9000),
		"READLENS_DATABASE_DSN":         "postgres://other/db",
		"READLENS_MAX_CONNS":            float64(4),
		"READLENS_SIMILARITY_THRESHOLD": 0.9,
		"READLENS_HISTORY_WINDOW_SIZE":  float64(25),
	})

	assert.Equal(t, 9000, cfg.WorkerPort)
	assert.Equal(t, "postgres://other/db", cfg.DatabaseDSN)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, 0.9, cfg.Scoring.SimilarityThreshold)
	assert.Equal(t, 25, cfg.Scoring.HistoryWindowSize)
}

func TestApplySettingsIgnoresInvalidValues(t *testing.T) {
	cfg := Default()
	applySettings(cfg, map[string]interface{}{
		"READLENS_WORKER_PORT": float64(-1),
		"READLENS_MAX_CONNS":   "not a number",
	})

	assert.Equal(t, DefaultWorkerPort, cfg.WorkerPort)
	assert.Equal(t, 10, cfg.MaxConns)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("READLENS_WORKER_PORT", "9100")
	t.Setenv("READLENS_SIMILARITY_THRESHOLD", "0.75")
	t.Setenv("READLENS_INSIGHT_SCHEDULE", "30 2 * * 1")

	cfg := Default()
	applyEnv(cfg)

	assert.Equal(t, 9100, cfg.WorkerPort)
	assert.Equal(t, 0.75, cfg.Scoring.SimilarityThreshold)
	assert.Equal(t, "30 2 * * 1", cfg.InsightSchedule)
}

func TestEnvOverridesSettings(t *testing.T) {
	t.Setenv("READLENS_WORKER_PORT", "9200")

	cfg := Default()
	applySettings(cfg, map[string]interface{}{"READLENS_WORKER_PORT": float64(9000)})
	applyEnv(cfg)

	assert.Equal(t, 9200, cfg.WorkerPort)
}
