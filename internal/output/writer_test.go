package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bikeshare-etl/internal/trips"
)

func TestPartitionFor(t *testing.T) {
	p := partitionFor(time.Date(2026, 7, 15, 23, 59, 0, 0, time.UTC))

	require.Equal(t, 2026, p.Year)
	require.Equal(t, time.July, p.Month)
	require.Equal(t, "trips/year=2026/month=07/trips-2026-07.parquet", p.tripKey())
}

func TestTripPartitionGrouping(t *testing.T) {
	id := int64(1)
	mk := func(start time.Time) trips.Trip {
		return trips.Trip{
			TripID:         1,
			StartDate:      start,
			EndDate:        start.Add(10 * time.Minute),
			DurationSec:    600,
			StartStationID: &id,
			EndStationID:   &id,
		}
	}
	in := []trips.Trip{
		mk(time.Date(2026, 6, 30, 23, 50, 0, 0, time.UTC)),
		mk(time.Date(2026, 7, 1, 0, 5, 0, 0, time.UTC)),
		mk(time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)),
	}

	groups := make(map[partition]int)
	for _, tr := range in {
		groups[partitionFor(tr.StartDate)]++
	}

	require.Len(t, groups, 2)
	require.Equal(t, 1, groups[partition{Year: 2026, Month: time.June}])
	require.Equal(t, 2, groups[partition{Year: 2026, Month: time.July}])
}

func TestStatusParquetKey(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)

	key := statusParquetKey(at)

	require.Equal(t, "gbfs/dt=2026-08-30/status-1788098400.parquet", key)
}
