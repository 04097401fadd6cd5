package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bikeshare-etl/internal/trips"
)

func mkTrip(id int64, start time.Time, durSec int, startStation, endStation *int64) trips.Trip {
	return trips.Trip{
		TripID:         id,
		StartDate:      start,
		EndDate:        start.Add(time.Duration(durSec) * time.Second),
		DurationSec:    durSec,
		IsMember:       "true",
		StartStationID: startStation,
		EndStationID:   endStation,
	}
}

func stationID(id int64) *int64 { return &id }

func TestGate(t *testing.T) {
	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	t.Run("keeps valid trips", func(t *testing.T) {
		in := []trips.Trip{
			mkTrip(1, base, 600, stationID(10), stationID(20)),
			mkTrip(2, base, 90, stationID(10), stationID(20)), // short but not a loop
		}
		kept, rep := Gate(in)

		require.Len(t, kept, 2)
		require.Equal(t, 2, rep.Input)
		require.Equal(t, 2, rep.Kept)
		require.Equal(t, 0, rep.Rejected())
		require.True(t, rep.Reconciles())
	})

	t.Run("rejects end before start", func(t *testing.T) {
		bad := mkTrip(1, base, 600, stationID(10), stationID(20))
		bad.EndDate = base.Add(-time.Minute)
		kept, rep := Gate([]trips.Trip{bad})

		require.Empty(t, kept)
		require.Equal(t, 1, rep.EndBeforeStart)
	})

	t.Run("rejects end equal to start", func(t *testing.T) {
		bad := mkTrip(1, base, 600, stationID(10), stationID(20))
		bad.EndDate = bad.StartDate
		_, rep := Gate([]trips.Trip{bad})

		require.Equal(t, 1, rep.EndBeforeStart)
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		bad := mkTrip(1, base, 600, stationID(10), stationID(20))
		bad.DurationSec = 0
		_, rep := Gate([]trips.Trip{bad})

		require.Equal(t, 1, rep.NonPositiveDuration)
		require.Equal(t, 0, rep.EndBeforeStart)
	})

	t.Run("rejects missing stations", func(t *testing.T) {
		in := []trips.Trip{
			mkTrip(1, base, 600, nil, stationID(20)),
			mkTrip(2, base, 600, stationID(10), nil),
		}
		kept, rep := Gate(in)

		require.Empty(t, kept)
		require.Equal(t, 2, rep.MissingStation)
	})

	t.Run("rejects short loop trips", func(t *testing.T) {
		_, rep := Gate([]trips.Trip{mkTrip(1, base, 119, stationID(10), stationID(10))})

		require.Equal(t, 1, rep.ShortLoop)
	})

	t.Run("keeps loop trips at or above the threshold", func(t *testing.T) {
		kept, rep := Gate([]trips.Trip{
			mkTrip(1, base, 120, stationID(10), stationID(10)),
			mkTrip(2, base, 3600, stationID(10), stationID(10)),
		})

		require.Len(t, kept, 2)
		require.Equal(t, 0, rep.ShortLoop)
	})

	t.Run("attributes rejection to the first failing predicate", func(t *testing.T) {
		// Fails both end<=start and duration<=0; only the first counts.
		bad := mkTrip(1, base, -5, stationID(10), stationID(10))
		_, rep := Gate([]trips.Trip{bad})

		require.Equal(t, 1, rep.EndBeforeStart)
		require.Equal(t, 0, rep.NonPositiveDuration)
		require.Equal(t, 0, rep.ShortLoop)
	})

	t.Run("report reconciles across mixed input", func(t *testing.T) {
		in := []trips.Trip{
			mkTrip(1, base, 600, stationID(1), stationID(2)),
			mkTrip(2, base, 0, stationID(1), stationID(2)),
			mkTrip(3, base, 600, nil, stationID(2)),
			mkTrip(4, base, 60, stationID(5), stationID(5)),
			mkTrip(5, base, 900, stationID(3), stationID(4)),
		}
		in[1].EndDate = in[1].StartDate.Add(time.Minute) // keep end>start so duration predicate fires
		kept, rep := Gate(in)

		require.Len(t, kept, 2)
		require.Equal(t, 5, rep.Input)
		require.Equal(t, 3, rep.Rejected())
		require.True(t, rep.Reconciles())
	})
}
