package act

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/types/motion"
)

// Step cadence bounds, steps per second. A walk is ~1.5-2 Hz, a run ~2.5-3 Hz.
const (
	stepFreqWalkingMin = 0.5
	stepFreqRunningMin = 2.4
)

// deriveMetrics recomputes the activity metrics from the buffered evidence.
// The previous value is fully replaced, never patched.
func (e *Engine) deriveMetrics() motion.Metrics {
	m := motion.Metrics{}

	// Speed and heading statistics from the fused-location context.
	var speeds []float64
	var headingDeltas []float64
	lastHeading := math.NaN()
	locs := e.locations.Get()
	for _, l := range locs {
		speeds = append(speeds, l.Speed)
		if !math.IsNaN(lastHeading) {
			headingDeltas = append(headingDeltas, math.Abs(common.HeadingDelta(lastHeading, l.Heading)))
		}
		lastHeading = l.Heading
	}
	if mean, err := stats.Mean(speeds); err == nil {
		m.AvgSpeed = mean
	}
	if max, err := stats.Max(speeds); err == nil {
		m.PeakSpeed = max
	}
	// No usable location headings yet: fall back to compass azimuths.
	if len(headingDeltas) == 0 {
		headingDeltas = e.compassDeltas()
	}
	if len(headingDeltas) > 0 {
		if mean, err := stats.Mean(headingDeltas); err == nil {
			// 1.0 is a dead-straight run, 0 is heading noise beyond 90 degrees.
			m.DirectionStability = 1 - math.Min(1, mean/90)
		}
	}

	// Acceleration statistics. Work on the deviation from gravity; a dead
	// still accelerometer reports ~9.8, not 0.
	accel := e.sensors[motion.Accelerometer].Get()
	var mags, devs []float64
	for _, s := range accel {
		mag := s.Magnitude()
		mags = append(mags, mag)
		devs = append(devs, math.Abs(mag-common.GravityOfEarth))
	}
	if mean, err := stats.Mean(devs); err == nil {
		m.AvgAccelMagnitude = mean
	}
	if v, err := stats.Variance(mags); err == nil {
		m.MovementVariance = v
	}
	m.StepFrequency = stepFrequency(accel, e.cfg.StepPeakThreshold)

	return m
}

// stepFrequency counts rising crossings of the step-peak threshold over the
// buffered accelerometer span, in peaks per second.
func stepFrequency(accel []motion.SensorSample, peakThreshold float64) float64 {
	if len(accel) < 2 {
		return 0
	}
	span := accel[len(accel)-1].Time.Sub(accel[0].Time).Seconds()
	if span <= 0 {
		return 0
	}
	peaks := 0
	above := false
	for _, s := range accel {
		dev := s.Magnitude() - common.GravityOfEarth
		if dev > peakThreshold {
			if !above {
				peaks++
				above = true
			}
		} else {
			above = false
		}
	}
	return float64(peaks) / span
}

// compassDeltas derives successive heading changes from the magnetometer's
// horizontal field azimuth, degrees per sample.
func (e *Engine) compassDeltas() []float64 {
	mag := e.sensors[motion.Magnetometer].Get()
	var deltas []float64
	lastAz := math.NaN()
	for _, s := range mag {
		az := common.NormalizeHeading(math.Atan2(s.Y, s.X) * 180 / math.Pi)
		if !math.IsNaN(lastAz) {
			deltas = append(deltas, math.Abs(common.HeadingDelta(lastAz, az)))
		}
		lastAz = az
	}
	return deltas
}

// gyroStable reports whether the buffered gyroscope evidence says the device
// is rotationally still. Valid only with some gyroscope traffic.
func (e *Engine) gyroStable() (stable, valid bool) {
	gyro := e.sensors[motion.Gyroscope].Get()
	if len(gyro) == 0 {
		return false, false
	}
	sum := 0.0
	for _, s := range gyro {
		sum += math.Abs(s.X) + math.Abs(s.Y) + math.Abs(s.Z)
	}
	return sum/float64(len(gyro)) < e.cfg.GyroStableThreshold, true
}

// classify votes up a candidate state and a confidence from the derived
// metrics. Stationary is scored first by vote: several independent signals
// (gyroscope, speed, acceleration, cadence) each push the score. For moving
// states the speed ladder nominates and cadence/ride-texture arbitrate.
// Agreement between independent signals is what buys confidence.
func (e *Engine) classify(m motion.Metrics) (motion.State, float64) {
	minSpeed := m.AvgSpeed
	if e.pos != nil && e.pos.kalmanSpeed < minSpeed {
		minSpeed = e.pos.kalmanSpeed
	}

	gyroStable, gyroValid := e.gyroStable()

	stillScore := 0.0
	if gyroValid && gyroStable {
		stillScore += 2
	}
	if minSpeed < common.SpeedOfWalkingMin {
		stillScore += 1
	} else {
		stillScore -= minSpeed - common.SpeedOfWalkingMin
	}
	if m.AvgAccelMagnitude < 0.3 {
		stillScore += 1
	} else {
		stillScore -= 1
	}
	if m.StepFrequency < stepFreqWalkingMin {
		stillScore += 0.5
	} else {
		stillScore -= 0.5
	}

	if stillScore > 1 {
		return motion.StateStationary, clampConfidence(0.5 + stillScore/8)
	}

	// Moving. Start from the speed ladder, then let cadence and smoothness
	// arbitrate the bands speed alone can't separate.
	candidate := motion.InferFromSpeed(minSpeed, 1, true)
	agreement := 0.0

	switch {
	case m.StepFrequency >= stepFreqRunningMin && minSpeed < common.SpeedOfCyclingMax:
		// A fast cadence is running no matter what the GPS noise says.
		candidate = motion.StateRunning
		agreement += 0.15
	case m.StepFrequency >= stepFreqWalkingMin && minSpeed < common.SpeedOfRunningMin:
		candidate = motion.StateWalking
		agreement += 0.15
	case candidate == motion.StateCycling && m.StepFrequency >= stepFreqWalkingMin:
		// Pedaling doesn't bounce like footfalls; cadence here smells of running.
		candidate = motion.StateRunning
	case candidate == motion.StateDriving:
		// Motorized: a smooth, straight, stepless ride at driving speed is
		// indistinguishable from rails by speed alone; use ride texture.
		if m.StepFrequency < stepFreqWalkingMin && m.MovementVariance < 0.2 &&
			m.DirectionStability > 0.9 {
			candidate = motion.StateTransit
		}
		agreement += 0.1
	}

	// Corroboration buys confidence.
	if m.AvgAccelMagnitude >= 0.3 {
		agreement += 0.1
	}
	if m.PeakSpeed >= minSpeed && m.PeakSpeed > 0 {
		agreement += 0.05
	}
	if gyroValid && !gyroStable {
		agreement += 0.1
	}
	if e.locations.Len() >= 3 {
		agreement += 0.1
	}

	return candidate, clampConfidence(0.5 + agreement)
}

func clampConfidence(c float64) float64 {
	return math.Max(0, math.Min(0.95, c))
}
