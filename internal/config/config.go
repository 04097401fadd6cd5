package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	WarehouseDB string

	RawBucket     string
	CuratedBucket string
	AWSRegion     string
	TripsPrefix   string

	CopyAccessKeyID     string
	CopySecretAccessKey string

	GBFSStatusURL string
	GBFSInfoURL   string

	PollInterval        time.Duration
	InfoRefreshInterval time.Duration

	NATSURL         string
	LogNATSSubjects bool
	MetricsAddr     string

	Location *time.Location
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Warehouse DSN: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		if db == "" && os.Getenv("WAREHOUSE_DB") != "" {
			db = "postgres"
		}
		if db == "" {
			return nil, errors.New("PGDATABASE or DATABASE_URL must be set (set PGDATABASE=postgres when using WAREHOUSE_DB)")
		}
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	} else {
		cfg.DatabaseURL = dsn
	}

	// Optional database name override on the cluster DSN
	cfg.WarehouseDB = os.Getenv("WAREHOUSE_DB")

	cfg.RawBucket = os.Getenv("RAW_BUCKET")
	cfg.CuratedBucket = os.Getenv("CURATED_BUCKET")
	if cfg.RawBucket == "" || cfg.CuratedBucket == "" {
		return nil, errors.New("RAW_BUCKET and CURATED_BUCKET must be set")
	}
	cfg.AWSRegion = getenvDefault("AWS_REGION", "us-east-1")
	cfg.TripsPrefix = getenvDefault("TRIPS_PREFIX", "trips/")

	// Credentials embedded into warehouse COPY statements; fall back to the
	// ambient AWS credentials used by the SDK.
	cfg.CopyAccessKeyID = firstNonEmpty(os.Getenv("COPY_ACCESS_KEY_ID"), os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.CopySecretAccessKey = firstNonEmpty(os.Getenv("COPY_SECRET_ACCESS_KEY"), os.Getenv("AWS_SECRET_ACCESS_KEY"))

	cfg.GBFSStatusURL = os.Getenv("GBFS_STATUS_URL")
	cfg.GBFSInfoURL = os.Getenv("GBFS_INFO_URL")

	// Snapshot poll interval
	if v := os.Getenv("POLL_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_SEC: %q", v)
		}
		cfg.PollInterval = time.Duration(sec) * time.Second
	} else {
		cfg.PollInterval = 60 * time.Second
	}

	// Station information refresh interval (minutes); metadata changes rarely
	if v := os.Getenv("INFO_REFRESH_MINUTES"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid INFO_REFRESH_MINUTES: %q", v)
		}
		cfg.InfoRefreshInterval = time.Duration(min) * time.Minute
	} else {
		cfg.InfoRefreshInterval = 360 * time.Minute
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9103"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
