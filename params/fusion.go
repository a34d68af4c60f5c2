package params

import (
	"time"

	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

type KalmanConfig struct {
	// ProcessNoise inflates the estimate variance on every predict step.
	// Bigger values trust fresh measurements more.
	ProcessNoise float64

	// MeasurementNoise is the fixed variance attributed to every measurement.
	// It is deliberately NOT derived per-sample from reported accuracy;
	// reported accuracy feeds the outlier guard and fusion weights instead.
	MeasurementNoise float64
}

var DefaultKalmanConfig = KalmanConfig{
	ProcessNoise:     0.5,
	MeasurementNoise: 15.0,
}

type GuardConfig struct {
	// MaxAccuracy is the accuracy threshold (meters) above which a sample
	// is treated as garbage. Generous on purpose; network fixes are coarse.
	MaxAccuracy float64

	// MaxSpeed is the speed threshold (m/s) above which either the reported
	// speed, or the speed implied by the jump from the last accepted fused
	// position, marks a sample as physically implausible.
	MaxSpeed float64

	// MaxElevation and MinElevation bound plausible elevations (meters).
	MaxElevation float64
	MinElevation float64
}

var DefaultGuardConfig = GuardConfig{
	MaxAccuracy:  200.0,
	MaxSpeed:     100.0,
	MaxElevation: 11000.0,
	MinElevation: -530.0,
}

type FusionConfig struct {
	// Interval is the fusion cycle cadence.
	Interval time.Duration

	// AccuracyWeightFactor scales the exponential accuracy decay in the
	// per-sample fusion weight: exp(-accuracy/factor).
	AccuracyWeightFactor float64

	// AgeWeightFactor scales the exponential age decay in the per-sample
	// fusion weight: exp(-ageSeconds/factor).
	AgeWeightFactor float64

	// SourceWeights favor the high-accuracy provider over coarser ones.
	SourceWeights map[location.Source]float64

	// PositionSmoothingFactor is the exponential smoothing factor applied
	// to lat/lng against the previously published fused location.
	// 1.0 disables smoothing; 0.0 never moves.
	PositionSmoothingFactor float64

	// SpeedSmoothingFactor smooths the fused speed, same form as position.
	SpeedSmoothingFactor float64

	// HeadingSmoothingFactor smooths heading circularly (wraps at 360).
	HeadingSmoothingFactor float64

	// PredictionMaxPoints caps how many recent fused points feed the
	// velocity estimate used by prediction.
	PredictionMaxPoints int

	// HistorySize bounds the published fused-location ring buffer.
	HistorySize int

	Kalman KalmanConfig
	Guard  GuardConfig
}

var DefaultFusionConfig = FusionConfig{
	Interval:             5 * time.Second,
	AccuracyWeightFactor: 50.0,
	AgeWeightFactor:      30.0,
	SourceWeights: map[location.Source]float64{
		location.SourceGPS:     1.0,
		location.SourceNetwork: 0.7,
		location.SourcePassive: 0.5,
	},
	PositionSmoothingFactor: 0.3,
	SpeedSmoothingFactor:    0.3,
	HeadingSmoothingFactor:  0.3,
	PredictionMaxPoints:     5,
	HistorySize:             32,
	Kalman:                  DefaultKalmanConfig,
	Guard:                   DefaultGuardConfig,
}

// SourceWeight returns the configured weight for a source, defaulting to the
// passive weight for unrecognized sources.
func (c FusionConfig) SourceWeight(src location.Source) float64 {
	if w, ok := c.SourceWeights[src]; ok {
		return w
	}
	if w, ok := c.SourceWeights[location.SourcePassive]; ok {
		return w
	}
	return 0.5
}

// AdaptedTo returns a copy of the config with cadence and guard tolerance
// adjusted for the given motion state. Driving wants a short interval and a
// looser speed gate; a stationary user doesn't need frequent fixes.
func (c FusionConfig) AdaptedTo(state motion.State) FusionConfig {
	out := c
	switch {
	case state.IsVehicular():
		out.Interval = c.Interval / 2
		out.Guard.MaxSpeed = c.Guard.MaxSpeed * 1.5
	case state.IsStationary():
		out.Interval = c.Interval * 3
	}
	if out.Interval < time.Second {
		out.Interval = time.Second
	}
	return out
}
