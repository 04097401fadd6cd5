package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"bikeshare-etl/internal/gbfs"
	"bikeshare-etl/internal/storage"
	"bikeshare-etl/internal/trips"
)

// tripRecord mirrors the warehouse trips table. Timestamps are written as
// TIMESTAMP_MILLIS so the warehouse COPY maps them onto timestamp columns.
type tripRecord struct {
	TripID         int64  `parquet:"name=trip_id, type=INT64"`
	StartDate      int64  `parquet:"name=start_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	EndDate        int64  `parquet:"name=end_date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	DurationSec    int32  `parquet:"name=duration_sec, type=INT32"`
	IsMember       string `parquet:"name=is_member, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartStationID int64  `parquet:"name=start_station_id, type=INT64"`
	EndStationID   int64  `parquet:"name=end_station_id, type=INT64"`
}

// statusRecord mirrors the warehouse gbfs table.
type statusRecord struct {
	StationID          int64 `parquet:"name=station_id, type=INT64"`
	IsCharging         bool  `parquet:"name=is_charging, type=BOOLEAN"`
	IsInstalled        int64 `parquet:"name=is_installed, type=INT64"`
	IsRenting          int64 `parquet:"name=is_renting, type=INT64"`
	IsReturning        int64 `parquet:"name=is_returning, type=INT64"`
	LastReported       int64 `parquet:"name=last_reported, type=INT64"`
	NumBikesAvailable  int64 `parquet:"name=num_bikes_available, type=INT64"`
	NumBikesDisabled   int64 `parquet:"name=num_bikes_disabled, type=INT64"`
	NumDocksAvailable  int64 `parquet:"name=num_docks_available, type=INT64"`
	NumDocksDisabled   int64 `parquet:"name=num_docks_disabled, type=INT64"`
	NumEbikesAvailable int64 `parquet:"name=num_ebikes_available, type=INT64"`
	LastUpdatedDt      int64 `parquet:"name=last_updated_dt, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// Writer lands curated objects in the target bucket, staging parquet files
// through a local temp directory.
type Writer struct {
	store   *storage.Client
	bucket  string
	tempDir string
}

func NewWriter(store *storage.Client, bucket, tempDir string) (*Writer, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Writer{store: store, bucket: bucket, tempDir: tempDir}, nil
}

type partition struct {
	Year  int
	Month time.Month
}

func partitionFor(t time.Time) partition {
	return partition{Year: t.Year(), Month: t.Month()}
}

func (p partition) tripKey() string {
	return fmt.Sprintf("trips/year=%04d/month=%02d/trips-%04d-%02d.parquet", p.Year, p.Month, p.Year, p.Month)
}

// WriteTrips writes cleaned trips as Snappy parquet partitioned by
// year/month of start_date and returns the total rows written. Callers must
// only pass gated trips: station ids are dereferenced unconditionally.
func (w *Writer) WriteTrips(ctx context.Context, in []trips.Trip) (int64, error) {
	groups := make(map[partition][]trips.Trip)
	for _, t := range in {
		p := partitionFor(t.StartDate)
		groups[p] = append(groups[p], t)
	}
	// Deterministic upload order
	parts := make([]partition, 0, len(groups))
	for p := range groups {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Year != parts[j].Year {
			return parts[i].Year < parts[j].Year
		}
		return parts[i].Month < parts[j].Month
	})

	var total int64
	for _, p := range parts {
		group := groups[p]
		records := make([]tripRecord, 0, len(group))
		for _, t := range group {
			records = append(records, tripRecord{
				TripID:         t.TripID,
				StartDate:      t.StartDate.UnixMilli(),
				EndDate:        t.EndDate.UnixMilli(),
				DurationSec:    int32(t.DurationSec),
				IsMember:       t.IsMember,
				StartStationID: *t.StartStationID,
				EndStationID:   *t.EndStationID,
			})
		}
		if err := writeParquet(ctx, w, p.tripKey(), records); err != nil {
			return total, err
		}
		total += int64(len(records))
		log.Printf("wrote %d trips to s3://%s/%s", len(records), w.bucket, p.tripKey())
	}
	return total, nil
}

// WriteStatusRows writes flattened GBFS snapshot rows as parquet partitioned
// by capture day.
func (w *Writer) WriteStatusRows(ctx context.Context, rows []gbfs.StatusRow, capturedAt time.Time) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	records := make([]statusRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, statusRecord{
			StationID:          r.StationID,
			IsCharging:         r.IsCharging,
			IsInstalled:        r.IsInstalled,
			IsRenting:          r.IsRenting,
			IsReturning:        r.IsReturning,
			LastReported:       r.LastReported,
			NumBikesAvailable:  r.NumBikesAvailable,
			NumBikesDisabled:   r.NumBikesDisabled,
			NumDocksAvailable:  r.NumDocksAvailable,
			NumDocksDisabled:   r.NumDocksDisabled,
			NumEbikesAvailable: r.NumEbikesAvailable,
			LastUpdatedDt:      r.LastUpdated.UnixMilli(),
		})
	}
	key := statusParquetKey(capturedAt)
	if err := writeParquet(ctx, w, key, records); err != nil {
		return 0, err
	}
	log.Printf("wrote %d gbfs rows to s3://%s/%s", len(records), w.bucket, key)
	return int64(len(records)), nil
}

func statusParquetKey(t time.Time) string {
	return fmt.Sprintf("gbfs/dt=%s/status-%d.parquet", t.UTC().Format("2006-01-02"), t.UTC().Unix())
}

// WriteStationsCSV writes station metadata as a headerless CSV object so the
// warehouse COPY maps columns positionally.
func (w *Writer) WriteStationsCSV(ctx context.Context, infos []gbfs.StationInformation) (int64, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	var written int64
	for _, s := range infos {
		id, err := strconv.ParseInt(s.StationID, 10, 64)
		if err != nil {
			log.Printf("skipping station with non-numeric id %q", s.StationID)
			continue
		}
		rec := []string{
			strconv.FormatInt(id, 10),
			s.Name,
			strconv.FormatFloat(s.Lat, 'f', 6, 64),
			strconv.FormatFloat(s.Lon, 'f', 6, 64),
		}
		if err := cw.Write(rec); err != nil {
			return written, fmt.Errorf("encode station row: %w", err)
		}
		written++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, err
	}
	key := "stations/stations.csv"
	meta := map[string]string{"record-count": strconv.FormatInt(written, 10)}
	if err := w.store.Upload(ctx, w.bucket, key, &buf, meta); err != nil {
		return written, err
	}
	log.Printf("wrote %d stations to s3://%s/%s", written, w.bucket, key)
	return written, nil
}

// writeParquet stages records to a local Snappy parquet file and uploads it
// with a record-count metadata entry.
func writeParquet[T any](ctx context.Context, w *Writer, key string, records []T) error {
	localName := fmt.Sprintf("%s/stage_%d.parquet", w.tempDir, time.Now().UnixNano())

	fw, err := local.NewLocalFileWriter(localName)
	if err != nil {
		return fmt.Errorf("create local file writer: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(T), 4)
	if err != nil {
		fw.Close()
		os.Remove(localName)
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(localName)
			return fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(localName)
		return fmt.Errorf("error in WriteStop: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(localName)
		return fmt.Errorf("close file writer: %w", err)
	}
	defer os.Remove(localName)

	f, err := os.Open(localName)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	meta := map[string]string{"record-count": strconv.Itoa(len(records))}
	return w.store.Upload(ctx, w.bucket, key, f, meta)
}
