/*
Package fusord is the fusion daemon: it owns the fusion and motion engines,
multiplexes raw provider samples and inertial sensor streams into them on
timers, and publishes the two output streams (fused locations, accepted
motion transitions).

The engines themselves are single-threaded by contract; the daemon's mutex
is the one serialization point, so hosts may call in from any goroutine.
*/
package fusord

import (
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/ethereum/go-ethereum/event"
	"github.com/golang/groupcache/lru"
	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/catfuse/geo/act"
	"github.com/rotblauer/catfuse/geo/fuse"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

// Daemon orchestrates the fusion core.
type Daemon struct {
	mu      sync.Mutex
	config  *params.DaemonConfig
	running bool

	fusion *fuse.Engine
	motion *act.Engine

	// pending holds the freshest sample per source, consumed once per
	// fusion cycle. A source gone quiet past the TTL contributes nothing.
	pending *ttlcache.Cache[string, location.RawSample]
	dedupe  *lru.Cache
	deduped int64

	locationFeed event.FeedOf[location.FusedLocation]
	motionFeed   event.FeedOf[motion.StateChange]

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewDaemon wires up both engines. A nil config gets defaults.
func NewDaemon(config *params.DaemonConfig) (*Daemon, error) {
	if config == nil {
		config = params.DefaultDaemonConfig()
	}
	if config.Fusion.Interval <= 0 {
		return nil, fmt.Errorf("invalid fusion interval: %v", config.Fusion.Interval)
	}
	d := &Daemon{
		config: config,
		fusion: fuse.NewEngine(config.Fusion),
		motion: act.NewEngine(config.Motion),
		pending: ttlcache.New[string, location.RawSample](
			ttlcache.WithTTL[string, location.RawSample](config.SampleTTL),
			ttlcache.WithDisableTouchOnHit[string, location.RawSample]()),
		dedupe: lru.New(config.DedupeCacheSize),
	}
	d.motion.OnTransition(d.onTransition)
	return d, nil
}

// onTransition is the feedback path: an accepted motion transition tags the
// fusion output, retunes fusion cadence and guard tolerance, and goes out on
// the motion feed.
func (d *Daemon) onTransition(change motion.StateChange) {
	d.fusion.SetMotion(change.To)
	d.fusion.SetConfig(d.config.Fusion.AdaptedTo(change.To))
	slog.Info("Motion state", "from", change.From.Emoji(), "to", change.To.Emoji(),
		"state", change.To, "confidence", change.Confidence)
	d.motionFeed.Send(change)
}

// Start spins up the fusion, analysis, and cleanup timers. Idempotent.
// After a Stop/Start pause the engines resume with their state intact;
// call Reset for a cold start.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	d.running = true
	d.quit = make(chan struct{})

	d.wg.Add(1)
	go d.runFusion()
	if !d.config.Motion.ImmediateAnalysis {
		d.wg.Add(1)
		go d.runAnalysis()
	}
	d.wg.Add(1)
	go d.runCleanup()

	slog.Info("fusord started",
		"fusion.interval", d.config.Fusion.Interval,
		"analysis.interval", d.config.Motion.AnalysisInterval)
	return nil
}

// Stop cancels all timers. Idempotent and symmetric with Start: engine
// state (filters, buffers, current motion state) survives the pause.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.quit)
	d.mu.Unlock()

	d.wg.Wait()
	slog.Info("fusord stopped")
}

// Reset tears both engines down to a cold start: Kalman filters snap on
// their next sample, buffers and history are gone. Call while stopped.
func (d *Daemon) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fusion.Reset()
	d.motion.Reset()
	d.pending.DeleteAll()
}

// runFusion drives the fusion cycle. The interval re-arms from config each
// round so motion feedback (driving wants faster fixes) takes hold without
// a restart.
func (d *Daemon) runFusion() {
	defer d.wg.Done()
	t := time.NewTimer(d.fusionInterval())
	defer t.Stop()
	for {
		select {
		case <-d.quit:
			return
		case <-t.C:
			d.tickFusion(time.Now())
			t.Reset(d.fusionInterval())
		}
	}
}

func (d *Daemon) fusionInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fusion.Config().Interval
}

func (d *Daemon) runAnalysis() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.config.Motion.AnalysisInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.running {
				d.motion.Analyze(time.Now())
			}
			d.mu.Unlock()
		}
	}
}

func (d *Daemon) runCleanup() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.running {
				d.pending.DeleteExpired()
				d.motion.Sweep(time.Now())
			}
			d.mu.Unlock()
		}
	}
}

// tickFusion gathers the latest per-source samples and runs one cycle.
func (d *Daemon) tickFusion(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		// A tick can land after teardown began; do nothing.
		return
	}
	d.fuseOnce(now)
}

// fuseOnce runs one fusion cycle over the pending samples, publishing on
// success. Callers hold the lock.
func (d *Daemon) fuseOnce(now time.Time) (location.FusedLocation, bool) {
	var samples []location.RawSample
	for _, item := range d.pending.Items() {
		samples = append(samples, item.Value())
	}
	if len(samples) == 0 {
		return location.FusedLocation{}, false
	}
	// Each sample is consumed exactly once.
	d.pending.DeleteAll()

	fused, ok := d.fusion.Fuse(samples, now)
	if !ok {
		return location.FusedLocation{}, false
	}
	d.locationFeed.Send(fused)
	d.motion.AddLocation(fused)
	return fused, true
}

// PushSample accepts one raw provider sample. Replayed duplicates are
// dropped; otherwise the sample becomes its source's pending contribution
// to the next fusion cycle.
func (d *Daemon) PushSample(s location.RawSample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dedupePass(s) {
		d.deduped++
		return
	}
	d.pending.Set(s.Source.String(), s, ttlcache.DefaultTTL)
}

// dedupePass returns true if the sample is not a recently seen duplicate.
// The time field is flattened to UnixNano; hashstructure can't reach into
// time.Time's unexported fields.
func (d *Daemon) dedupePass(s location.RawSample) bool {
	hash, err := hashstructure.Hash(struct {
		Sample location.RawSample
		Unix   int64
	}{s, s.Time.UnixNano()}, hashstructure.FormatV2, nil)
	if err != nil {
		return true
	}
	key := fmt.Sprintf("%d", hash)
	if _, ok := d.dedupe.Get(key); ok {
		return false
	}
	d.dedupe.Add(key, true)
	return true
}

// PushSensor accepts one inertial sensor reading.
func (d *Daemon) PushSensor(s motion.SensorSample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.motion.AddSensor(s)
}

// SubscribeLocations delivers one FusedLocation per completed fusion cycle
// until the subscription is unsubscribed.
func (d *Daemon) SubscribeLocations(ch chan<- location.FusedLocation) event.Subscription {
	return d.locationFeed.Subscribe(ch)
}

// SubscribeMotion delivers accepted motion-state transitions only.
func (d *Daemon) SubscribeMotion(ch chan<- motion.StateChange) event.Subscription {
	return d.motionFeed.Subscribe(ch)
}

// Current returns the last fused location. With no published result yet but
// samples pending, it runs an immediate one-shot fusion pass.
func (d *Daemon) Current() (location.FusedLocation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if loc, ok := d.fusion.Current(); ok {
		return loc, true
	}
	return d.fuseOnce(time.Now())
}

// Predict extrapolates the position the given duration ahead. ok=false
// without at least two fused points of history.
func (d *Daemon) Predict(ahead time.Duration) (location.FusedLocation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fusion.Predict(ahead)
}

// UpdateConfig swaps tunables on both engines. The new fusion config is the
// base future motion feedback adapts from. A non-positive fusion interval is
// rejected; the fusion timer re-arms from it.
func (d *Daemon) UpdateConfig(config *params.DaemonConfig) error {
	if config == nil {
		return nil
	}
	if config.Fusion.Interval <= 0 {
		return fmt.Errorf("invalid fusion interval: %v", config.Fusion.Interval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = config
	st, _ := d.motion.State()
	d.fusion.SetConfig(config.Fusion.AdaptedTo(st))
	d.motion.SetConfig(config.Motion)
	return nil
}

// Metrics is the daemon-wide diagnostic snapshot.
type Metrics struct {
	Running        bool             `json:"Running"`
	Fusion         fuse.Diagnostics `json:"Fusion"`
	Motion         act.Diagnostics  `json:"Motion"`
	PendingSources int              `json:"PendingSources"`
	Deduped        int64            `json:"Deduped"`
}

// GetMetrics returns a diagnostic snapshot of both engines.
func (d *Daemon) GetMetrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Metrics{
		Running:        d.running,
		Fusion:         d.fusion.Metrics(),
		Motion:         d.motion.Metrics(),
		PendingSources: d.pending.Len(),
		Deduped:        d.deduped,
	}
}
