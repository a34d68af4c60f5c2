/*
Package act classifies what the user is doing from buffered inertial
sensor samples and recent fused positions.

Every analysis cycle derives activity metrics (speed statistics, step
frequency, movement variance, direction stability) from the ring buffers,
votes up a candidate state with a confidence, and gates the transition:
a candidate below the configured confidence threshold changes nothing.
*/
package act

import (
	"log/slog"
	"math"
	"time"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/metrics"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

// TransitionFn is notified on every accepted state transition.
type TransitionFn func(motion.StateChange)

// Engine buffers evidence and classifies motion state.
// Not safe for concurrent use; the owning daemon serializes access.
type Engine struct {
	cfg params.MotionConfig

	sensors   map[motion.SensorType]*common.RingBuffer[motion.SensorSample]
	locations *common.RingBuffer[location.FusedLocation]

	pos *pos // Kalman-smoothed speed evidence, reset on long gaps.

	state      motion.State
	confidence float64
	derived    motion.Metrics
	analyses   int64
	accepted   int64

	onTransition TransitionFn
}

func NewEngine(cfg params.MotionConfig) *Engine {
	sensors := make(map[motion.SensorType]*common.RingBuffer[motion.SensorSample], motion.SensorTypes)
	for _, st := range []motion.SensorType{motion.Accelerometer, motion.Gyroscope, motion.Magnetometer} {
		sensors[st] = common.NewRingBuffer[motion.SensorSample](cfg.SensorBufferSize)
	}
	return &Engine{
		cfg:       cfg,
		sensors:   sensors,
		locations: common.NewRingBuffer[location.FusedLocation](cfg.LocationBufferSize),
		state:     motion.StateUnknown,
	}
}

// OnTransition registers the accepted-transition callback.
func (e *Engine) OnTransition(fn TransitionFn) { e.onTransition = fn }

// SetConfig swaps tunables; buffers and state survive.
func (e *Engine) SetConfig(cfg params.MotionConfig) { e.cfg = cfg }

// State returns the current classified state and its confidence.
func (e *Engine) State() (motion.State, float64) { return e.state, e.confidence }

// Derived returns the metrics computed by the most recent analysis.
func (e *Engine) Derived() motion.Metrics { return e.derived }

// AddLocation feeds a fused position into the context buffer.
// Returns the accepted transition, if analysis ran and one was accepted.
func (e *Engine) AddLocation(loc location.FusedLocation) (motion.StateChange, bool) {
	e.observe(loc)
	e.locations.Add(loc)
	if e.cfg.ImmediateAnalysis {
		return e.Analyze(loc.Time)
	}
	return motion.StateChange{}, false
}

// AddSensor feeds one inertial reading into its sensor buffer.
// Returns the accepted transition, if analysis ran and one was accepted.
func (e *Engine) AddSensor(s motion.SensorSample) (motion.StateChange, bool) {
	buf, ok := e.sensors[s.Type]
	if !ok {
		return motion.StateChange{}, false
	}
	buf.Add(s)
	if e.cfg.ImmediateAnalysis {
		return e.Analyze(s.Time)
	}
	return motion.StateChange{}, false
}

// Analyze recomputes the activity metrics from everything buffered and
// evaluates the candidate transition. It returns the transition and true
// only when one was accepted.
func (e *Engine) Analyze(now time.Time) (motion.StateChange, bool) {
	e.analyses++

	evidence := e.locations.Len()
	for _, buf := range e.sensors {
		evidence += buf.Len()
	}
	if evidence < e.cfg.MinAnalysisSamples {
		return motion.StateChange{}, false
	}

	e.derived = e.deriveMetrics()
	candidate, confidence := e.classify(e.derived)
	return e.transition(candidate, confidence, now)
}

// transition applies the confidence gate. A rejected candidate leaves the
// previous state and confidence untouched and fires nothing.
func (e *Engine) transition(candidate motion.State, confidence float64, now time.Time) (motion.StateChange, bool) {
	if candidate == e.state {
		// Same state: refresh confidence, no event.
		e.confidence = confidence
		return motion.StateChange{}, false
	}
	if confidence < e.cfg.TransitionConfidenceThreshold {
		return motion.StateChange{}, false
	}

	change := motion.StateChange{
		From:       e.state,
		To:         candidate,
		Confidence: confidence,
		Time:       now,
		Metrics:    e.derived,
	}
	slog.Debug("Motion transition", "from", change.From, "to", change.To,
		"confidence", common.DecimalToFixed(confidence, 2))
	e.state = candidate
	e.confidence = confidence
	e.accepted++
	if e.onTransition != nil {
		e.onTransition(change)
	}
	return change, true
}

// Sweep evicts buffered evidence older than the retention window.
func (e *Engine) Sweep(now time.Time) {
	cutoff := now.Add(-e.cfg.RetentionWindow)
	for _, buf := range e.sensors {
		buf.DropWhile(func(s motion.SensorSample) bool {
			return s.Time.Before(cutoff)
		})
	}
	e.locations.DropWhile(func(l location.FusedLocation) bool {
		return l.Time.Before(cutoff)
	})
}

// Diagnostics is the motion engine's metric snapshot.
type Diagnostics struct {
	State           motion.State   `json:"State"`
	Confidence      float64        `json:"Confidence"`
	Metrics         motion.Metrics `json:"Metrics"`
	Analyses        int64          `json:"Analyses"`
	Transitions     int64          `json:"Transitions"`
	KalmanSpeed     float64        `json:"KalmanSpeed"`
	BufferOccupancy map[string]int `json:"BufferOccupancy"`
}

// Metrics returns a diagnostic snapshot.
func (e *Engine) Metrics() Diagnostics {
	occ := map[string]int{
		"locations": e.locations.Len(),
	}
	for st, buf := range e.sensors {
		occ[st.String()] = buf.Len()
	}
	d := Diagnostics{
		State:           e.state,
		Confidence:      e.confidence,
		Metrics:         e.derived,
		Analyses:        e.analyses,
		Transitions:     e.accepted,
		BufferOccupancy: occ,
	}
	if e.pos != nil {
		d.KalmanSpeed = e.pos.kalmanSpeed
	}
	return d
}

// Reset tears the engine down to a cold start.
func (e *Engine) Reset() {
	for st := range e.sensors {
		e.sensors[st] = common.NewRingBuffer[motion.SensorSample](e.cfg.SensorBufferSize)
	}
	e.locations = common.NewRingBuffer[location.FusedLocation](e.cfg.LocationBufferSize)
	e.pos = nil
	e.state = motion.StateUnknown
	e.confidence = 0
	e.derived = motion.Metrics{}
}

// pos carries the Kalman-filtered speed evidence between locations,
// following the reset-on-discontinuity pattern: a long gap or a time
// reversal means the old motion context is stale.
type pos struct {
	last         time.Time
	filter       *geoFilter
	kalmanSpeed  float64
	speed        *metrics.EWMA
	headingDelta *metrics.EWMA
	lastHeading  float64
}

func (e *Engine) observe(loc location.FusedLocation) {
	if e.pos == nil || loc.Time.Sub(e.pos.last) > e.cfg.RetentionWindow ||
		loc.Time.Before(e.pos.last) {
		e.pos = newPos(loc)
		return
	}
	span := loc.Time.Sub(e.pos.last).Seconds()
	if span == 0 {
		return
	}
	e.pos.observe(span, loc)
}

func newPos(loc location.FusedLocation) *pos {
	p := &pos{
		last:         loc.Time,
		filter:       newGeoFilter(loc.Lat, loc.Speed, 0.1),
		kalmanSpeed:  loc.Speed,
		speed:        metrics.NewEWMA(0.3),
		headingDelta: metrics.NewEWMA(0.3),
		lastHeading:  loc.Heading,
	}
	p.speed.Update(loc.Speed)
	return p
}

func (p *pos) observe(seconds float64, loc location.FusedLocation) {
	if p.filter != nil {
		if speed, ok := p.filter.observe(seconds, loc); ok {
			p.kalmanSpeed = speed
		}
	}
	p.speed.Update(loc.Speed)
	p.headingDelta.Update(math.Abs(common.HeadingDelta(p.lastHeading, loc.Heading)))
	p.lastHeading = loc.Heading
	p.last = loc.Time
}
