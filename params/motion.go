package params

import "time"

type MotionConfig struct {
	// AnalysisInterval is the periodic classification cadence.
	AnalysisInterval time.Duration

	// TransitionConfidenceThreshold gates state transitions. A candidate
	// classification below this confidence leaves the current state and
	// its confidence untouched, and no transition event fires.
	TransitionConfidenceThreshold float64

	// SensorBufferSize bounds each per-sensor ring buffer.
	SensorBufferSize int

	// LocationBufferSize bounds the recent fused-location ring buffer.
	LocationBufferSize int

	// RetentionWindow is the age past which buffered samples are swept,
	// independent of buffer occupancy.
	RetentionWindow time.Duration

	// ImmediateAnalysis re-classifies on every location/sensor arrival
	// instead of waiting for the analysis timer.
	ImmediateAnalysis bool

	// StepPeakThreshold is the accelerometer magnitude deviation from
	// gravity (m/s^2) that counts as a step peak.
	StepPeakThreshold float64

	// GyroStableThreshold is the summed absolute rotation rate (rad/s)
	// under which the device is considered gyroscopically still.
	GyroStableThreshold float64

	// MinAnalysisSamples is the minimum evidence (sensor samples plus
	// buffered locations) required before the classifier ventures a guess.
	MinAnalysisSamples int
}

var DefaultMotionConfig = MotionConfig{
	AnalysisInterval:              5 * time.Second,
	TransitionConfidenceThreshold: 0.7,
	SensorBufferSize:              256,
	LocationBufferSize:            64,
	RetentionWindow:               2 * time.Minute,
	ImmediateAnalysis:             false,
	StepPeakThreshold:             1.5,
	GyroStableThreshold:           0.01,
	MinAnalysisSamples:            3,
}
