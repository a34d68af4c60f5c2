/*
Package location defines the value types flowing through the fusion core:
raw provider samples in, fused estimates out.
*/
package location

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/types/motion"
)

// RawSample is one position report from one provider.
// It is a value type; providers produce it, the fusion engine consumes it
// exactly once per fusion cycle, and nobody mutates it in between.
// Optional fields ride with a Has* flag rather than a pointer so the zero
// value stays cheap to copy and trivially comparable.
type RawSample struct {
	Lat          float64   `json:"Lat"`
	Lng          float64   `json:"Lng"`
	Elevation    float64   `json:"Elevation,omitempty"`
	HasElevation bool      `json:"HasElevation,omitempty"`
	Accuracy     float64   `json:"Accuracy"`
	Speed        float64   `json:"Speed,omitempty"`
	HasSpeed     bool      `json:"HasSpeed,omitempty"`
	Heading      float64   `json:"Heading,omitempty"`
	HasHeading   bool      `json:"HasHeading,omitempty"`
	Time         time.Time `json:"Time"`
	Source       Source    `json:"Source"`
	Quality      Quality   `json:"Quality,omitempty"`
}

// Point returns the sample position as an orb.Point (lng, lat order).
func (s RawSample) Point() orb.Point {
	return orb.Point{s.Lng, s.Lat}
}

// SafeAccuracy returns the reported accuracy clamped to something usable.
// Garbage in (NaN, Inf, non-positive) gets the benefit of very little doubt.
func (s RawSample) SafeAccuracy() float64 {
	if math.IsNaN(s.Accuracy) || math.IsInf(s.Accuracy, 0) {
		return 100
	}
	return math.Max(1, s.Accuracy)
}

// SafeSpeed returns the reported speed, or 0 when absent or garbage.
func (s RawSample) SafeSpeed() float64 {
	if !s.HasSpeed || math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		return 0
	}
	return math.Max(0, s.Speed)
}

// SafeHeading returns the reported heading normalized to [0,360),
// or 0 when absent.
func (s RawSample) SafeHeading() float64 {
	if !s.HasHeading {
		return 0
	}
	return common.NormalizeHeading(s.Heading)
}

// SafeQuality returns the provider quality hint, falling back to an
// accuracy-derived bucket when the provider didn't offer one.
func (s RawSample) SafeQuality() Quality {
	if s.Quality != QualityUnknown {
		return s.Quality
	}
	return QualityFromAccuracy(s.SafeAccuracy())
}

// Provenance records how a FusedLocation came to be.
type Provenance struct {
	SourceCount    int     `json:"SourceCount"`
	WeightTotal    float64 `json:"WeightTotal"`
	KalmanFiltered bool    `json:"KalmanFiltered,omitempty"`
	Smoothed       bool    `json:"Smoothed,omitempty"`
	Predicted      bool    `json:"Predicted,omitempty"`
}

// FusedLocation is the single output of one fusion cycle.
// It is immutable; the next cycle supersedes it with a fresh value.
type FusedLocation struct {
	Lat       float64      `json:"Lat"`
	Lng       float64      `json:"Lng"`
	Elevation float64      `json:"Elevation,omitempty"`
	Accuracy  float64      `json:"Accuracy"`
	Speed     float64      `json:"Speed"`
	Heading   float64      `json:"Heading"`
	Time      time.Time    `json:"Time"`
	Quality   Quality      `json:"Quality"`
	Motion    motion.State `json:"Motion"`
	Meta      Provenance   `json:"Meta"`
}

// Point returns the fused position as an orb.Point (lng, lat order).
func (f FusedLocation) Point() orb.Point {
	return orb.Point{f.Lng, f.Lat}
}

// IsZero reports whether the location is the zero value, i.e. "no result".
func (f FusedLocation) IsZero() bool {
	return f.Time.IsZero()
}
