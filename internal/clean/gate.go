// Package clean applies the data-quality gate trips must pass before the
// warehouse load. The gate is a fixed-order sequence of independent boolean
// predicates; a rejected trip is attributed to the first predicate it fails,
// so the per-predicate counts partition the rejected set exactly.
package clean

import (
	"time"

	"bikeshare-etl/internal/trips"
)

// LoopTripMinDuration is the threshold below which a loop trip (identical
// origin and destination station) is treated as a non-ride.
const LoopTripMinDuration = 2 * time.Minute

type Report struct {
	Input int
	Kept  int

	EndBeforeStart      int // end_time <= start_time
	NonPositiveDuration int // duration <= 0
	MissingStation      int // null origin or destination station
	ShortLoop           int // loop trip under LoopTripMinDuration
}

// Rejected returns the total number of rejected trips.
func (r Report) Rejected() int {
	return r.EndBeforeStart + r.NonPositiveDuration + r.MissingStation + r.ShortLoop
}

// Reconciles reports whether input == kept + rejected.
func (r Report) Reconciles() bool {
	return r.Input == r.Kept+r.Rejected()
}

// Gate filters trips through the quality predicates and returns the kept
// trips plus a report of what was rejected and why.
func Gate(in []trips.Trip) ([]trips.Trip, Report) {
	rep := Report{Input: len(in)}
	kept := make([]trips.Trip, 0, len(in))
	for _, t := range in {
		switch {
		case !t.EndDate.After(t.StartDate):
			rep.EndBeforeStart++
		case t.DurationSec <= 0:
			rep.NonPositiveDuration++
		case t.StartStationID == nil || t.EndStationID == nil:
			rep.MissingStation++
		case isShortLoop(t):
			rep.ShortLoop++
		default:
			kept = append(kept, t)
		}
	}
	rep.Kept = len(kept)
	return kept, rep
}

func isShortLoop(t trips.Trip) bool {
	if *t.StartStationID != *t.EndStationID {
		return false
	}
	return time.Duration(t.DurationSec)*time.Second < LoopTripMinDuration
}
