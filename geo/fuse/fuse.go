/*
Package fuse turns the raw samples gathered in one fusion cycle into a
single smoothed, quality-scored position estimate.

One cycle: outlier guard -> per-source Kalman update -> weighted combine ->
exponential smoothing against the previously published output. Prediction
extrapolates from the published history.
*/
package fuse

import (
	"math"
	"time"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/geo/guard"
	"github.com/rotblauer/catfuse/geo/kalman"
	"github.com/rotblauer/catfuse/metrics"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

// Engine orchestrates the fusion cycle.
// Not safe for concurrent use; the owning daemon serializes access.
type Engine struct {
	cfg     params.FusionConfig
	guard   *guard.Guard
	filters map[location.Source]*kalman.PairFilter

	last    location.FusedLocation
	history *common.RingBuffer[location.FusedLocation]
	motion  motion.State

	avgAccuracy *metrics.EWMA
	confidence  *metrics.EWMA
	cycles      int64
}

func NewEngine(cfg params.FusionConfig) *Engine {
	return &Engine{
		cfg:         cfg,
		guard:       guard.New(cfg.Guard),
		filters:     make(map[location.Source]*kalman.PairFilter),
		history:     common.NewRingBuffer[location.FusedLocation](cfg.HistorySize),
		motion:      motion.StateUnknown,
		avgAccuracy: metrics.NewEWMA(0.2),
		confidence:  metrics.NewEWMA(0.2),
	}
}

// SetConfig swaps tunables mid-flight. Filters and history survive; only
// thresholds and factors change. Used for the motion feedback loop.
func (e *Engine) SetConfig(cfg params.FusionConfig) {
	e.cfg = cfg
	e.guard.SetConfig(cfg.Guard)
}

// Config returns the active config.
func (e *Engine) Config() params.FusionConfig { return e.cfg }

// SetMotion tags subsequent fused outputs with the classified motion state.
func (e *Engine) SetMotion(state motion.State) { e.motion = state }

// Fuse runs one fusion cycle over the gathered samples and returns the
// published result, or ok=false when every sample was rejected or none
// were offered.
func (e *Engine) Fuse(samples []location.RawSample, now time.Time) (location.FusedLocation, bool) {
	accepted := samples[:0:0]
	for _, s := range samples {
		if e.guard.Check(s, e.last) == guard.ReasonNone {
			accepted = append(accepted, s)
		}
	}
	if len(accepted) == 0 {
		return location.FusedLocation{}, false
	}

	// Per-source Kalman pass. Each source owns its filter pair; the first
	// sample a fresh filter sees passes through unchanged.
	filtered := make([]location.RawSample, len(accepted))
	for i, s := range accepted {
		f, ok := e.filters[s.Source]
		if !ok {
			f = kalman.NewPairFilter(e.cfg.Kalman)
			e.filters[s.Source] = f
		}
		fLat, fLng := f.Update(s.Lat, s.Lng, s.SafeAccuracy())
		fs := s
		fs.Lat, fs.Lng = fLat, fLng
		filtered[i] = fs
	}

	weights := make([]float64, len(filtered))
	for i, s := range filtered {
		weights[i] = e.Weigh(s, now)
	}

	fused := Combine(filtered, weights)
	fused.Motion = e.motion
	fused.Meta.KalmanFiltered = true

	fused = e.smooth(fused)

	e.last = fused
	e.history.Add(fused)
	e.cycles++
	e.avgAccuracy.Update(fused.Accuracy)
	e.confidence.Update(fused.Meta.WeightTotal / float64(fused.Meta.SourceCount))

	return fused, true
}

// Weigh computes the fusion weight of one sample at the given instant:
// accuracy decay x age decay x source preference x quality rank.
// Non-finite products are treated as zero; a broken field must not be able
// to poison the weighted sums downstream.
func (e *Engine) Weigh(s location.RawSample, now time.Time) float64 {
	age := now.Sub(s.Time).Seconds()
	if age < 0 {
		age = 0
	}
	w := math.Exp(-s.SafeAccuracy()/e.cfg.AccuracyWeightFactor) *
		math.Exp(-age/e.cfg.AgeWeightFactor) *
		e.cfg.SourceWeight(s.Source) *
		float64(s.SafeQuality().Rank()+1) / float64(location.QualityLevels)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}

// Combine reduces one cycle's filtered samples to a single location by
// weighted arithmetic mean, except accuracy, which takes a weighted
// harmonic mean: averaging error radii naively would reward the worst
// contributor. A single sample, or a degenerate zero weight total, returns
// the first sample's fields unchanged.
func Combine(samples []location.RawSample, weights []float64) location.FusedLocation {
	if len(samples) == 1 {
		return singleResult(samples[0])
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return singleResult(samples[0])
	}

	var lat, lng, elev, speed, heading, invAccuracy float64
	var elevWeight float64
	best := location.QualityUnknown
	latest := samples[0].Time
	for i, s := range samples {
		w := weights[i]
		lat += w * s.Lat
		lng += w * s.Lng
		speed += w * s.SafeSpeed()
		heading += w * s.SafeHeading()
		invAccuracy += w / s.SafeAccuracy()
		if s.HasElevation {
			elev += w * s.Elevation
			elevWeight += w
		}
		if q := s.SafeQuality(); q.Better(best) {
			best = q
		}
		if s.Time.After(latest) {
			latest = s.Time
		}
	}

	out := location.FusedLocation{
		Lat:      lat / total,
		Lng:      lng / total,
		Speed:    speed / total,
		Heading:  common.NormalizeHeading(heading / total),
		Accuracy: total / invAccuracy,
		Quality:  best,
		Time:     latest,
		Meta: location.Provenance{
			SourceCount: len(samples),
			WeightTotal: total,
		},
	}
	if elevWeight > 0 {
		out.Elevation = elev / elevWeight
	}
	return out
}

func singleResult(s location.RawSample) location.FusedLocation {
	return location.FusedLocation{
		Lat:       s.Lat,
		Lng:       s.Lng,
		Elevation: s.Elevation,
		Accuracy:  s.SafeAccuracy(),
		Speed:     s.SafeSpeed(),
		Heading:   s.SafeHeading(),
		Time:      s.Time,
		Quality:   s.SafeQuality(),
		Meta: location.Provenance{
			SourceCount: 1,
			WeightTotal: 1,
		},
	}
}

// smooth blends the cycle result against the previously published location.
// The first-ever output passes through untouched; there is no anchor yet.
func (e *Engine) smooth(cur location.FusedLocation) location.FusedLocation {
	if e.last.IsZero() {
		return cur
	}
	pf := e.cfg.PositionSmoothingFactor
	cur.Lat = (1-pf)*e.last.Lat + pf*cur.Lat
	cur.Lng = (1-pf)*e.last.Lng + pf*cur.Lng
	cur.Speed = (1-e.cfg.SpeedSmoothingFactor)*e.last.Speed + e.cfg.SpeedSmoothingFactor*cur.Speed
	cur.Heading = SmoothHeading(e.last.Heading, cur.Heading, e.cfg.HeadingSmoothingFactor)
	cur.Meta.Smoothed = true
	return cur
}

// SmoothHeading blends two compass headings through the short way around
// the circle. Smoothing 350 toward 10 passes through north, not south.
func SmoothHeading(old, new, factor float64) float64 {
	return common.NormalizeHeading(old + factor*common.HeadingDelta(old, new))
}

// Current returns the last published location, ok=false before the first cycle.
func (e *Engine) Current() (location.FusedLocation, bool) {
	if e.last.IsZero() {
		return location.FusedLocation{}, false
	}
	return e.last, true
}

// History returns the published locations, oldest first.
func (e *Engine) History() []location.FusedLocation {
	return e.history.Get()
}

// Predict linearly extrapolates the position by the average velocity over
// the recent published history. It needs at least two points; uncertainty
// grows with the horizon, so the reported accuracy doubles and quality is
// capped at Fair no matter how good the inputs were.
func (e *Engine) Predict(d time.Duration) (location.FusedLocation, bool) {
	pts := e.history.Tail(e.cfg.PredictionMaxPoints)
	if len(pts) < 2 {
		return location.FusedLocation{}, false
	}

	var latVel, lngVel float64
	pairs := 0
	for i := 1; i < len(pts); i++ {
		dt := pts[i].Time.Sub(pts[i-1].Time).Seconds()
		if dt <= 0 {
			continue
		}
		latVel += (pts[i].Lat - pts[i-1].Lat) / dt
		lngVel += (pts[i].Lng - pts[i-1].Lng) / dt
		pairs++
	}
	if pairs == 0 {
		return location.FusedLocation{}, false
	}
	latVel /= float64(pairs)
	lngVel /= float64(pairs)

	sec := d.Seconds()
	last := pts[len(pts)-1]
	out := last
	out.Lat = last.Lat + latVel*sec
	out.Lng = last.Lng + lngVel*sec
	out.Heading = common.NormalizeHeading(math.Atan2(lngVel, latVel) * 180 / math.Pi)
	out.Accuracy = last.Accuracy * 2
	out.Time = last.Time.Add(d)
	out.Quality = location.QualityFair
	out.Meta.Predicted = true
	return out, true
}

// Diagnostics is the fusion engine's metric snapshot.
type Diagnostics struct {
	Cycles      int64                                     `json:"Cycles"`
	AvgAccuracy float64                                   `json:"AvgAccuracy"`
	Confidence  float64                                   `json:"Confidence"`
	OutlierRate float64                                   `json:"OutlierRate"`
	Outliers    guard.Counters                            `json:"Outliers"`
	Estimators  map[location.Source]kalman.EstimatorState `json:"Estimators"`
	HistoryLen  int                                       `json:"HistoryLen"`
}

// Metrics returns a diagnostic snapshot.
func (e *Engine) Metrics() Diagnostics {
	est := make(map[location.Source]kalman.EstimatorState, len(e.filters))
	for src, f := range e.filters {
		est[src] = f.State()
	}
	return Diagnostics{
		Cycles:      e.cycles,
		AvgAccuracy: e.avgAccuracy.Value(),
		Confidence:  e.confidence.Value(),
		OutlierRate: e.guard.Counters().OutlierRate(),
		Outliers:    e.guard.Counters(),
		Estimators:  est,
		HistoryLen:  e.history.Len(),
	}
}

// Reset tears the engine down to a cold start: filters snap again on their
// next sample, the publish anchor and history are gone, counters survive.
func (e *Engine) Reset() {
	for _, f := range e.filters {
		f.Reset()
	}
	e.last = location.FusedLocation{}
	e.history = common.NewRingBuffer[location.FusedLocation](e.cfg.HistorySize)
	e.avgAccuracy.Reset()
	e.confidence.Reset()
}
