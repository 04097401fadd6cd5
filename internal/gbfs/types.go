package gbfs

import (
	"strconv"
	"time"
)

// feed is the GBFS envelope shared by all feeds.
type feed[T any] struct {
	LastUpdated int64 `json:"last_updated"`
	TTL         int   `json:"ttl"`
	Data        struct {
		Stations []T `json:"stations"`
	} `json:"data"`
}

type StationStatus struct {
	StationID          string `json:"station_id"`
	NumBikesAvailable  int64  `json:"num_bikes_available"`
	NumBikesDisabled   int64  `json:"num_bikes_disabled"`
	NumDocksAvailable  int64  `json:"num_docks_available"`
	NumDocksDisabled   int64  `json:"num_docks_disabled"`
	NumEbikesAvailable int64  `json:"num_ebikes_available"`
	IsInstalled        int64  `json:"is_installed"`
	IsRenting          int64  `json:"is_renting"`
	IsReturning        int64  `json:"is_returning"`
	IsChargingStation  bool   `json:"is_charging_station"`
	LastReported       int64  `json:"last_reported"`
}

type StationInformation struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Capacity  int64   `json:"capacity"`
}

// Snapshot is one timestamped capture of all station states.
type Snapshot struct {
	CapturedAt  time.Time       `json:"captured_at"`
	LastUpdated time.Time       `json:"last_updated"`
	Stations    []StationStatus `json:"stations"`
}

// StatusRow is a station state flattened to the shape of the warehouse
// gbfs table, with the snapshot-level last_updated stamped onto each row.
type StatusRow struct {
	StationID          int64
	IsCharging         bool
	IsInstalled        int64
	IsRenting          int64
	IsReturning        int64
	LastReported       int64
	NumBikesAvailable  int64
	NumBikesDisabled   int64
	NumDocksAvailable  int64
	NumDocksDisabled   int64
	NumEbikesAvailable int64
	LastUpdated        time.Time
}

// Flatten converts a snapshot into warehouse-shaped rows. Stations whose
// station_id is not numeric cannot satisfy the warehouse column type and are
// skipped; the second return value is the number skipped.
func Flatten(s *Snapshot) ([]StatusRow, int) {
	rows := make([]StatusRow, 0, len(s.Stations))
	skipped := 0
	for _, st := range s.Stations {
		id, err := strconv.ParseInt(st.StationID, 10, 64)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, StatusRow{
			StationID:          id,
			IsCharging:         st.IsChargingStation,
			IsInstalled:        st.IsInstalled,
			IsRenting:          st.IsRenting,
			IsReturning:        st.IsReturning,
			LastReported:       st.LastReported,
			NumBikesAvailable:  st.NumBikesAvailable,
			NumBikesDisabled:   st.NumBikesDisabled,
			NumDocksAvailable:  st.NumDocksAvailable,
			NumDocksDisabled:   st.NumDocksDisabled,
			NumEbikesAvailable: st.NumEbikesAvailable,
			LastUpdated:        s.LastUpdated,
		})
	}
	return rows, skipped
}
