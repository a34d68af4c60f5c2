/*
Package motion defines the classified activity context of a tracked user,
and the inertial-sensor sample types the classifier feeds on.
*/
package motion

import (
	"math"
	"regexp"
	"time"

	"github.com/rotblauer/catfuse/common"
)

// State is the classified activity context of the user.
type State int

const (
	StateStationary State = iota
	StateWalking
	StateRunning
	StateCycling
	StateDriving
	StateTransit
	StateUnknown State = -1
)

var AllStateNames = []string{
	StateUnknown.String(),
	StateStationary.String(),
	StateWalking.String(),
	StateRunning.String(),
	StateCycling.String(),
	StateDriving.String(),
	StateTransit.String(),
}

var (
	stateStationary = regexp.MustCompile(`(?i)stationary|still`)
	stateWalking    = regexp.MustCompile(`(?i)walk`)
	stateRunning    = regexp.MustCompile(`(?i)run`)
	stateCycling    = regexp.MustCompile(`(?i)cycle|bike|biking`)
	stateDriving    = regexp.MustCompile(`(?i)drive|driving|automotive|car`)
	stateTransit    = regexp.MustCompile(`(?i)transit|train|bus|tram`)
)

// IsActive returns whether the state is moving. (Yoga is NOT "Active".)
func (s State) IsActive() bool {
	return s > StateStationary && s <= StateTransit
}

// IsStationary returns whether the state is stationary.
func (s State) IsStationary() bool { return s == StateStationary }

// IsKnown returns true if the state is not Unknown.
func (s State) IsKnown() bool {
	return s != StateUnknown
}

// IsActiveHuman returns whether the state is human-powered.
func (s State) IsActiveHuman() bool {
	return s >= StateWalking && s < StateDriving
}

// IsVehicular returns whether the user is riding something motorized.
func (s State) IsVehicular() bool {
	return s == StateDriving || s == StateTransit
}

// String implements the Stringer interface.
func (s State) String() string {
	switch s {
	case StateStationary:
		return "Stationary"
	case StateWalking:
		return "Walking"
	case StateRunning:
		return "Running"
	case StateCycling:
		return "Cycling"
	case StateDriving:
		return "Driving"
	case StateTransit:
		return "Transit"
	}
	return "Unknown"
}

// Emoji returns a single emoji representation of the state.
func (s State) Emoji() string {
	switch s {
	case StateStationary:
		return "📍"
	case StateWalking:
		return "🚶"
	case StateRunning:
		return "🏃"
	case StateCycling:
		return "🚴"
	case StateDriving:
		return "🚗"
	case StateTransit:
		return "🚆"
	}
	return "❓"
}

func FromString(str string) State {
	switch {
	case stateStationary.MatchString(str):
		return StateStationary
	case stateWalking.MatchString(str):
		return StateWalking
	case stateRunning.MatchString(str):
		return StateRunning
	case stateCycling.MatchString(str):
		return StateCycling
	case stateTransit.MatchString(str):
		return StateTransit
	case stateDriving.MatchString(str):
		return StateDriving
	}
	return StateUnknown
}

// InferFromSpeed infers a state from speed using high -> low breakpoints
// over the common speed constants. maxMul scales the breakpoints.
// A mustActive caller never gets Stationary back.
func InferFromSpeed(speed, maxMul float64, mustActive bool) State {
	if speed > common.SpeedOfCyclingMax*maxMul {
		return StateDriving
	}
	if speed > ((common.SpeedOfRunningMean+common.SpeedOfRunningMax)/2)*maxMul {
		return StateCycling
	}
	if speed > common.SpeedOfWalkingMax*maxMul {
		return StateRunning
	}
	if !mustActive && speed < common.SpeedOfWalkingMin {
		return StateStationary
	}
	return StateWalking
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *State) UnmarshalText(text []byte) error {
	*s = FromString(string(text))
	return nil
}

// SensorType tags an inertial sensor stream.
type SensorType int

const (
	Accelerometer SensorType = iota
	Gyroscope
	Magnetometer

	// SensorTypes is the number of recognized sensor streams.
	SensorTypes = 3
)

// String implements the Stringer interface.
func (t SensorType) String() string {
	switch t {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	case Magnetometer:
		return "magnetometer"
	}
	return "unknown"
}

// SensorSample is one 3-axis inertial reading.
// Ephemeral; it lives only inside the motion engine's ring buffers.
type SensorSample struct {
	X, Y, Z float64
	Time    time.Time
	Type    SensorType
}

// Magnitude returns the Euclidean norm of the reading.
func (s SensorSample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Metrics are the activity features derived each analysis cycle from the
// buffered sensor and location data. A cycle fully replaces the previous
// value; nothing is patched incrementally.
type Metrics struct {
	AvgSpeed           float64 `json:"AvgSpeed"`
	PeakSpeed          float64 `json:"PeakSpeed"`
	AvgAccelMagnitude  float64 `json:"AvgAccelMagnitude"`
	StepFrequency      float64 `json:"StepFrequency"`
	MovementVariance   float64 `json:"MovementVariance"`
	DirectionStability float64 `json:"DirectionStability"`
}

// StateChange is emitted on every accepted motion-state transition.
type StateChange struct {
	From       State     `json:"From"`
	To         State     `json:"To"`
	Confidence float64   `json:"Confidence"`
	Time       time.Time `json:"Time"`
	Metrics    Metrics   `json:"Metrics"`
}
