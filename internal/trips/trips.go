package trips

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Trip is one ride from the monthly trip export. Station ids are pointers
// because the export leaves them blank for undocked starts/ends.
type Trip struct {
	TripID         int64
	StartDate      time.Time
	EndDate        time.Time
	DurationSec    int
	IsMember       string
	StartStationID *int64
	EndStationID   *int64
}

type DecodeStats struct {
	Rows      int // data rows read, excluding the header
	Malformed int // rows skipped due to cast failures or wrong arity
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// DecodeCSV reads a monthly trip CSV with a header row. Columns are matched
// by name so exports with reordered columns still decode. Malformed rows are
// counted and skipped rather than failing the whole file.
func DecodeCSV(r io.Reader, loc *time.Location) ([]Trip, DecodeStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"trip_id", "start_date", "end_date", "duration_sec", "is_member", "start_station_id", "end_station_id"} {
		if _, ok := idx[required]; !ok {
			return nil, DecodeStats{}, fmt.Errorf("missing column %q", required)
		}
	}

	var (
		out   []Trip
		stats DecodeStats
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Malformed++
			continue
		}
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		stats.Rows++
		t, ok := decodeRow(rec, idx, loc)
		if !ok {
			stats.Malformed++
			continue
		}
		out = append(out, t)
	}
	return out, stats, nil
}

func decodeRow(rec []string, idx map[string]int, loc *time.Location) (Trip, bool) {
	field := func(name string) (string, bool) {
		i := idx[name]
		if i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}

	var t Trip
	s, ok := field("trip_id")
	if !ok {
		return t, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return t, false
	}
	t.TripID = id

	if s, ok = field("start_date"); !ok {
		return t, false
	}
	if t.StartDate, err = parseTimestamp(s, loc); err != nil {
		return t, false
	}
	if s, ok = field("end_date"); !ok {
		return t, false
	}
	if t.EndDate, err = parseTimestamp(s, loc); err != nil {
		return t, false
	}

	if s, ok = field("duration_sec"); !ok {
		return t, false
	}
	if t.DurationSec, err = strconv.Atoi(s); err != nil {
		return t, false
	}

	if t.IsMember, ok = field("is_member"); !ok {
		return t, false
	}

	if t.StartStationID, ok = parseStationID(rec, idx, "start_station_id"); !ok {
		return t, false
	}
	if t.EndStationID, ok = parseStationID(rec, idx, "end_station_id"); !ok {
		return t, false
	}
	return t, true
}

// parseStationID returns nil for a blank field and false only for a present
// but non-numeric value.
func parseStationID(rec []string, idx map[string]int, name string) (*int64, bool) {
	i := idx[name]
	if i >= len(rec) {
		return nil, true
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
