package act

import (
	"log/slog"
	"math"

	rkalman "github.com/regnull/kalman"
	"github.com/rotblauer/catfuse/types/location"
)

// geoFilter wraps the geodetic Kalman filter that robustifies the speed
// evidence: reported speeds spike on bad fixes, the filtered speed doesn't.
type geoFilter struct {
	f *rkalman.GeoFilter
}

func newGeoFilter(latitude, speed, acceleration float64) *geoFilter {
	// Estimate process noise.
	processNoise := &rkalman.GeoProcessNoise{
		// We assume the measurements will take place at approximately the
		// same location, so that we can disregard the earth's curvature.
		BaseLat: latitude,
		// How much do we expect the user to move, meters per second.
		DistancePerSecond: math.Max(speed, 1),
		// How much do we expect the user's speed to change, meters per second squared.
		SpeedPerSecond: acceleration,
	}
	f, err := rkalman.NewGeoFilter(processNoise)
	if err != nil {
		slog.Error("Failed to initialize geo Kalman filter", "error", err)
		return nil
	}
	return &geoFilter{f: f}
}

func (g *geoFilter) observe(seconds float64, loc location.FusedLocation) (speed float64, ok bool) {
	err := g.f.Observe(seconds, &rkalman.GeoObserved{
		Lat:                loc.Lat,
		Lng:                loc.Lng,
		Altitude:           loc.Elevation,
		Speed:              loc.Speed,
		SpeedAccuracy:      0.2,
		Direction:          loc.Heading,
		DirectionAccuracy:  0,
		HorizontalAccuracy: math.Max(loc.Accuracy, 1),
		VerticalAccuracy:   2.0,
	})
	if err != nil {
		slog.Error("Kalman.Observe failed", "error", err)
		return 0, false
	}
	if est := g.f.Estimate(); est != nil {
		return est.Speed, true
	}
	return 0, false
}
