package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://user@host:5432/warehouse?sslmode=disable")
	t.Setenv("PG_DSN", "")
	t.Setenv("RAW_BUCKET", "raw-bucket")
	t.Setenv("CURATED_BUCKET", "curated-bucket")
	t.Setenv("POLL_INTERVAL_SEC", "")
	t.Setenv("INFO_REFRESH_MINUTES", "")
	t.Setenv("WAREHOUSE_DB", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("TRIPS_PREFIX", "")
	t.Setenv("LOG_NATS_SUBJECTS", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("TZ", "")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setBaseEnv(t)
		cfg, err := Load()

		require.NoError(t, err)
		require.Equal(t, "postgres://user@host:5432/warehouse?sslmode=disable", cfg.DatabaseURL)
		require.Equal(t, "raw-bucket", cfg.RawBucket)
		require.Equal(t, "curated-bucket", cfg.CuratedBucket)
		require.Equal(t, "us-east-1", cfg.AWSRegion)
		require.Equal(t, "trips/", cfg.TripsPrefix)
		require.Equal(t, 60*time.Second, cfg.PollInterval)
		require.Equal(t, 360*time.Minute, cfg.InfoRefreshInterval)
		require.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
		require.False(t, cfg.LogNATSSubjects)
	})

	t.Run("missing buckets fail", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("RAW_BUCKET", "")
		_, err := Load()

		require.Error(t, err)
		require.Contains(t, err.Error(), "RAW_BUCKET")
	})

	t.Run("intervals parse", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("POLL_INTERVAL_SEC", "15")
		t.Setenv("INFO_REFRESH_MINUTES", "30")
		cfg, err := Load()

		require.NoError(t, err)
		require.Equal(t, 15*time.Second, cfg.PollInterval)
		require.Equal(t, 30*time.Minute, cfg.InfoRefreshInterval)
	})

	t.Run("invalid poll interval fails", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("POLL_INTERVAL_SEC", "zero")
		_, err := Load()

		require.Error(t, err)
	})

	t.Run("non-positive poll interval fails", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("POLL_INTERVAL_SEC", "0")
		_, err := Load()

		require.Error(t, err)
	})

	t.Run("boolean flags accept common truthy spellings", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("LOG_NATS_SUBJECTS", "Yes")
		cfg, err := Load()

		require.NoError(t, err)
		require.True(t, cfg.LogNATSSubjects)
	})
}
