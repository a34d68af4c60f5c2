/*
Package guard rejects raw samples that can't be real before they are
allowed anywhere near the estimator.

Checks are independent necessary conditions: bogus coordinates, hopeless
accuracy, impossible reported speed, teleportation (the speed implied by
the distance from the last accepted fused position over elapsed time),
and wild elevation. A rejected sample is dropped silently and counted;
rejection is never an error.
*/
package guard

import (
	"math"
	"time"

	"github.com/paulmach/orb/geo"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
)

// Reason says which check a sample failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCoordinates
	ReasonAccuracy
	ReasonSpeed
	ReasonTeleport
	ReasonElevation
)

// String implements the Stringer interface.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCoordinates:
		return "coordinates"
	case ReasonAccuracy:
		return "accuracy"
	case ReasonSpeed:
		return "speed"
	case ReasonTeleport:
		return "teleport"
	case ReasonElevation:
		return "elevation"
	}
	return "unknown"
}

// Counters tallies guard traffic for diagnostics.
type Counters struct {
	Checked     int64 `json:"Checked"`
	Rejected    int64 `json:"Rejected"`
	Coordinates int64 `json:"Coordinates"`
	Accuracy    int64 `json:"Accuracy"`
	Speed       int64 `json:"Speed"`
	Teleport    int64 `json:"Teleport"`
	Elevation   int64 `json:"Elevation"`
}

// OutlierRate returns rejected/checked, or 0 before any traffic.
func (c Counters) OutlierRate() float64 {
	if c.Checked == 0 {
		return 0
	}
	return float64(c.Rejected) / float64(c.Checked)
}

// Guard validates raw samples against physical and contextual bounds.
// Not safe for concurrent use; the owning engine serializes access.
type Guard struct {
	cfg      params.GuardConfig
	counters Counters
}

func New(cfg params.GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// SetConfig swaps thresholds; counters survive.
func (g *Guard) SetConfig(cfg params.GuardConfig) { g.cfg = cfg }

// Check validates a sample against the configured bounds and, when the last
// accepted fused position is non-zero, against the speed its arrival implies.
// It returns ReasonNone when the sample passes, and counts the outcome.
func (g *Guard) Check(s location.RawSample, last location.FusedLocation) Reason {
	g.counters.Checked++
	reason := g.check(s, last)
	switch reason {
	case ReasonNone:
		return ReasonNone
	case ReasonCoordinates:
		g.counters.Coordinates++
	case ReasonAccuracy:
		g.counters.Accuracy++
	case ReasonSpeed:
		g.counters.Speed++
	case ReasonTeleport:
		g.counters.Teleport++
	case ReasonElevation:
		g.counters.Elevation++
	}
	g.counters.Rejected++
	return reason
}

func (g *Guard) check(s location.RawSample, last location.FusedLocation) Reason {
	if math.Abs(s.Lat) > 90 || math.Abs(s.Lng) > 180 ||
		math.IsNaN(s.Lat) || math.IsNaN(s.Lng) {
		return ReasonCoordinates
	}
	if s.Accuracy < 0 || s.Accuracy > g.cfg.MaxAccuracy ||
		math.IsNaN(s.Accuracy) || math.IsInf(s.Accuracy, 0) {
		return ReasonAccuracy
	}
	if s.HasSpeed && s.Speed > g.cfg.MaxSpeed {
		return ReasonSpeed
	}
	if s.HasElevation &&
		(s.Elevation > g.cfg.MaxElevation || s.Elevation < g.cfg.MinElevation) {
		return ReasonElevation
	}
	// Teleportation: a jump from the last accepted fused position faster
	// than anything the guard allows, even when the sample's own fields
	// look clean. Signal loss is not teleportation; the elapsed time
	// denominator takes care of that.
	if !last.IsZero() && s.Time.After(last.Time) {
		elapsed := s.Time.Sub(last.Time)
		if elapsed > 0 && elapsed < 24*time.Hour {
			dist := geo.Distance(last.Point(), s.Point())
			if dist/elapsed.Seconds() > g.cfg.MaxSpeed {
				return ReasonTeleport
			}
		}
	}
	return ReasonNone
}

// Counters returns a copy of the tallies.
func (g *Guard) Counters() Counters { return g.counters }
