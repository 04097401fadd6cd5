package trips

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const header = "trip_id,start_date,end_date,duration_sec,is_member,start_station_id,end_station_id\n"

func TestDecodeCSV(t *testing.T) {
	loc := time.UTC

	t.Run("decodes and casts columns", func(t *testing.T) {
		in := header +
			"9001,2026-07-01 08:00:00,2026-07-01 08:10:30,630,true,12,34\n"
		got, stats, err := DecodeCSV(strings.NewReader(in), loc)

		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 1, stats.Rows)
		require.Equal(t, 0, stats.Malformed)

		tr := got[0]
		require.Equal(t, int64(9001), tr.TripID)
		require.Equal(t, time.Date(2026, 7, 1, 8, 0, 0, 0, loc), tr.StartDate)
		require.Equal(t, time.Date(2026, 7, 1, 8, 10, 30, 0, loc), tr.EndDate)
		require.Equal(t, 630, tr.DurationSec)
		require.Equal(t, "true", tr.IsMember)
		require.NotNil(t, tr.StartStationID)
		require.Equal(t, int64(12), *tr.StartStationID)
		require.NotNil(t, tr.EndStationID)
		require.Equal(t, int64(34), *tr.EndStationID)
	})

	t.Run("matches columns by name regardless of order", func(t *testing.T) {
		in := "is_member,trip_id,end_station_id,start_station_id,duration_sec,end_date,start_date\n" +
			"false,7,2,1,60,2026-07-01 09:01:00,2026-07-01 09:00:00\n"
		got, _, err := DecodeCSV(strings.NewReader(in), loc)

		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, int64(7), got[0].TripID)
		require.Equal(t, "false", got[0].IsMember)
	})

	t.Run("blank station ids decode to nil", func(t *testing.T) {
		in := header +
			"9002,2026-07-01 08:00:00,2026-07-01 08:05:00,300,false,,34\n"
		got, stats, err := DecodeCSV(strings.NewReader(in), loc)

		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 0, stats.Malformed)
		require.Nil(t, got[0].StartStationID)
		require.NotNil(t, got[0].EndStationID)
	})

	t.Run("malformed rows are counted and skipped", func(t *testing.T) {
		in := header +
			"not-a-number,2026-07-01 08:00:00,2026-07-01 08:05:00,300,false,1,2\n" +
			"9003,garbage,2026-07-01 08:05:00,300,false,1,2\n" +
			"9004,2026-07-01 08:00:00,2026-07-01 08:05:00,300,false,1,2\n"
		got, stats, err := DecodeCSV(strings.NewReader(in), loc)

		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 3, stats.Rows)
		require.Equal(t, 2, stats.Malformed)
		require.Equal(t, int64(9004), got[0].TripID)
	})

	t.Run("accepts RFC3339 timestamps", func(t *testing.T) {
		in := header +
			"9005,2026-07-01T08:00:00Z,2026-07-01T08:05:00Z,300,true,1,2\n"
		got, _, err := DecodeCSV(strings.NewReader(in), loc)

		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("missing required column fails", func(t *testing.T) {
		in := "trip_id,start_date,end_date\n1,2026-07-01 08:00:00,2026-07-01 08:05:00\n"
		_, _, err := DecodeCSV(strings.NewReader(in), loc)

		require.Error(t, err)
		require.Contains(t, err.Error(), "duration_sec")
	})

	t.Run("empty file fails on header read", func(t *testing.T) {
		_, _, err := DecodeCSV(strings.NewReader(""), loc)
		require.Error(t, err)
	})
}
