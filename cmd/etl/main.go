package main

import (
	"context"
	"encoding/json"
	"log"
	"os/signal"
	"syscall"
	"time"

	"bikeshare-etl/internal/clean"
	"bikeshare-etl/internal/config"
	"bikeshare-etl/internal/gbfs"
	"bikeshare-etl/internal/metrics"
	"bikeshare-etl/internal/output"
	"bikeshare-etl/internal/storage"
	"bikeshare-etl/internal/trips"
	"bikeshare-etl/internal/warehouse"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.GBFSInfoURL == "" {
		log.Fatalf("GBFS_INFO_URL must be set")
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup (optional for a batch run)
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PollInterval, cfg.InfoRefreshInterval)
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Warehouse connection, optionally retargeted to a named database
	dsn := cfg.DatabaseURL
	if cfg.WarehouseDB != "" {
		dsn, err = warehouse.WithDBName(cfg.DatabaseURL, cfg.WarehouseDB)
		if err != nil {
			log.Fatalf("compose DSN: %v", err)
		}
	}
	db, err := warehouse.Open(dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := warehouse.Ping(ctx, db); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	if err := warehouse.EnsureHistory(ctx, db); err != nil {
		log.Fatalf("load history error: %v", err)
	}
	if at, rows, err := warehouse.LatestLoadRun(ctx, db, "trips"); err == nil {
		log.Printf("previous trips load: %d rows at %s", rows, at.Format(time.RFC3339))
	}

	store := storage.New(cfg.AWSRegion)
	out, err := output.NewWriter(store, cfg.CuratedBucket, "")
	if err != nil {
		log.Fatalf("output writer error: %v", err)
	}

	start := time.Now()

	// 1) Trip CSVs: decode, gate, write partitioned parquet
	tripRows, err := runTrips(ctx, cfg, store, out, mcol)
	if err != nil {
		log.Fatalf("trips stage error: %v", err)
	}

	// 2) Station metadata: fetch and write CSV
	stationRows, err := runStations(ctx, cfg, out)
	if err != nil {
		log.Fatalf("stations stage error: %v", err)
	}

	// 3) GBFS snapshots: flatten raw captures into warehouse-shaped parquet
	gbfsRows, err := runSnapshots(ctx, cfg, store, out)
	if err != nil {
		log.Fatalf("gbfs stage error: %v", err)
	}

	// 4) Warehouse load and verification
	expected := map[string]int64{
		"trips":    tripRows,
		"stations": stationRows,
		"gbfs":     gbfsRows,
	}
	loader := warehouse.NewLoader(db, cfg.CopyAccessKeyID, cfg.CopySecretAccessKey)
	if err := loader.Run(ctx, warehouse.JobsFor(cfg.CuratedBucket, expected)); err != nil {
		log.Fatalf("warehouse load error: %v", err)
	}

	// 5) Bookkeeping
	finished := time.Now()
	for table, rows := range expected {
		if err := warehouse.RecordLoadRun(ctx, db, table, rows, finished); err != nil {
			log.Fatalf("record load run error: %v", err)
		}
	}

	log.Printf("etl complete in %s: trips=%d stations=%d gbfs=%d", time.Since(start).Round(time.Millisecond), tripRows, stationRows, gbfsRows)
}

func runTrips(ctx context.Context, cfg *config.Config, store *storage.Client, out *output.Writer, mcol *metrics.Collector) (int64, error) {
	keys, err := store.ListKeys(ctx, cfg.RawBucket, cfg.TripsPrefix, ".csv")
	if err != nil {
		return 0, err
	}
	log.Printf("found %d trip CSV files under s3://%s/%s", len(keys), cfg.RawBucket, cfg.TripsPrefix)

	var all []trips.Trip
	for _, key := range keys {
		body, err := store.Get(ctx, cfg.RawBucket, key)
		if err != nil {
			return 0, err
		}
		decoded, stats, err := trips.DecodeCSV(body, cfg.Location)
		body.Close()
		if err != nil {
			return 0, err
		}
		log.Printf("decoded %s: %d rows, %d malformed", key, stats.Rows, stats.Malformed)
		all = append(all, decoded...)
	}

	kept, report := clean.Gate(all)
	log.Printf("gate: input=%d kept=%d end_before_start=%d non_positive_duration=%d missing_station=%d short_loop=%d",
		report.Input, report.Kept, report.EndBeforeStart, report.NonPositiveDuration, report.MissingStation, report.ShortLoop)
	if mcol != nil {
		mcol.RowsKept.Add(float64(report.Kept))
		mcol.RowsRejected.WithLabelValues("end_before_start").Add(float64(report.EndBeforeStart))
		mcol.RowsRejected.WithLabelValues("non_positive_duration").Add(float64(report.NonPositiveDuration))
		mcol.RowsRejected.WithLabelValues("missing_station").Add(float64(report.MissingStation))
		mcol.RowsRejected.WithLabelValues("short_loop").Add(float64(report.ShortLoop))
	}

	return out.WriteTrips(ctx, kept)
}

func runStations(ctx context.Context, cfg *config.Config, out *output.Writer) (int64, error) {
	client := gbfs.NewClient(cfg.GBFSStatusURL, cfg.GBFSInfoURL)
	infos, err := client.FetchInformation(ctx)
	if err != nil {
		return 0, err
	}
	return out.WriteStationsCSV(ctx, infos)
}

func runSnapshots(ctx context.Context, cfg *config.Config, store *storage.Client, out *output.Writer) (int64, error) {
	keys, err := store.ListKeys(ctx, cfg.RawBucket, "gbfs/status/", ".json")
	if err != nil {
		return 0, err
	}
	log.Printf("found %d raw status snapshots", len(keys))

	var total int64
	for _, key := range keys {
		b, err := store.Download(ctx, cfg.RawBucket, key)
		if err != nil {
			return total, err
		}
		var snap gbfs.Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			log.Printf("skipping undecodable snapshot %s: %v", key, err)
			continue
		}
		rows, skipped := gbfs.Flatten(&snap)
		if skipped > 0 {
			log.Printf("snapshot %s: skipped %d stations with non-numeric ids", key, skipped)
		}
		n, err := out.WriteStatusRows(ctx, rows, snap.CapturedAt)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
