/*
Package kalman implements the scalar recursive estimator the fusion engine
runs per axis (latitude, longitude).

It is the textbook one-dimensional filter: a predict step that inflates the
estimate variance by a constant process noise, then an update step blending
the prior and the measurement by the Kalman gain. Measurement noise is a
fixed configured constant; reported per-sample accuracy feeds the outlier
guard and the fusion weights instead, seeding only the very first variance.
*/
package kalman

import "github.com/rotblauer/catfuse/params"

// Measurement is one scalar observation with its variance estimate
// (typically accuracy squared) at a point in time.
type Measurement struct {
	Value    float64
	Variance float64
}

// Filter is a one-dimensional Kalman filter.
// Pure numeric state machine: no allocation, no blocking, no errors.
type Filter struct {
	cfg params.KalmanConfig

	state    float64
	variance float64
	gain     float64
	primed   bool
}

// NewFilter returns an unprimed filter. The first Update snaps to its
// measurement; there is nothing to smooth against yet.
func NewFilter(cfg params.KalmanConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Update advances the filter by one measurement and returns the filtered value.
func (f *Filter) Update(m Measurement) float64 {
	if !f.primed {
		f.state = m.Value
		f.variance = m.Variance
		f.primed = true
		return f.state
	}

	// Predict: uncertainty grows while we weren't looking.
	f.variance += f.cfg.ProcessNoise

	// Update: blend prior and measurement by gain.
	f.gain = f.variance / (f.variance + f.cfg.MeasurementNoise)
	f.state += f.gain * (m.Value - f.state)
	f.variance *= 1 - f.gain

	return f.state
}

// State returns the current estimate.
func (f *Filter) State() float64 { return f.state }

// Variance returns the current estimate variance.
func (f *Filter) Variance() float64 { return f.variance }

// LastGain returns the gain of the most recent update, for diagnostics.
// Zero until the second Update.
func (f *Filter) LastGain() float64 { return f.gain }

// Primed reports whether the filter has seen a measurement.
func (f *Filter) Primed() bool { return f.primed }

// Reset forgets all state; the next Update snaps again.
func (f *Filter) Reset() {
	f.state, f.variance, f.gain = 0, 0, 0
	f.primed = false
}

// EstimatorState is a diagnostic snapshot of a position filter pair.
type EstimatorState struct {
	Lat         float64 `json:"Lat"`
	Lng         float64 `json:"Lng"`
	LatVariance float64 `json:"LatVariance"`
	LngVariance float64 `json:"LngVariance"`
	LastGain    float64 `json:"LastGain"`
}

// PairFilter runs a latitude and a longitude filter in lockstep.
// One instance is owned per raw-sample source; nothing else mutates it.
type PairFilter struct {
	lat, lng *Filter
}

// NewPairFilter returns an unprimed lat/lng filter pair.
func NewPairFilter(cfg params.KalmanConfig) *PairFilter {
	return &PairFilter{
		lat: NewFilter(cfg),
		lng: NewFilter(cfg),
	}
}

// Update feeds one position observation through both axes and returns the
// filtered latitude and longitude. Variance seeds from accuracy squared.
func (p *PairFilter) Update(lat, lng, accuracy float64) (fLat, fLng float64) {
	v := accuracy * accuracy
	fLat = p.lat.Update(Measurement{Value: lat, Variance: v})
	fLng = p.lng.Update(Measurement{Value: lng, Variance: v})
	return fLat, fLng
}

// State returns a diagnostic snapshot.
func (p *PairFilter) State() EstimatorState {
	return EstimatorState{
		Lat:         p.lat.State(),
		Lng:         p.lng.State(),
		LatVariance: p.lat.Variance(),
		LngVariance: p.lng.Variance(),
		LastGain:    p.lat.LastGain(),
	}
}

// LastGain returns the latitude axis gain from the most recent update.
func (p *PairFilter) LastGain() float64 { return p.lat.LastGain() }

// Primed reports whether the pair has seen a measurement.
func (p *PairFilter) Primed() bool { return p.lat.Primed() }

// Reset forgets all state on both axes.
func (p *PairFilter) Reset() {
	p.lat.Reset()
	p.lng.Reset()
}
