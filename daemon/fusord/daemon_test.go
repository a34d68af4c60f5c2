package fusord

import (
	"log/slog"
	"testing"
	"time"

	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

func sampleAt(lat, lng float64, at time.Time) location.RawSample {
	return location.RawSample{
		Lat: lat, Lng: lng,
		Accuracy: 5,
		Time:     at,
		Source:   location.SourceGPS,
	}
}

func TestNewDaemonDefaults(t *testing.T) {
	d, err := NewDaemon(nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.config.Fusion.Interval != params.DefaultFusionConfig.Interval {
		t.Errorf("nil config must take defaults, got %v", d.config.Fusion.Interval)
	}
}

func TestNewDaemonRejectsBadInterval(t *testing.T) {
	cfg := params.DefaultDaemonConfig()
	cfg.Fusion.Interval = 0
	if _, err := NewDaemon(cfg); err == nil {
		t.Error("zero interval must be rejected")
	}
}

func TestCurrentRunsOneShot(t *testing.T) {
	d, _ := NewDaemon(nil)
	now := time.Now()

	if _, ok := d.Current(); ok {
		t.Error("no samples, no result")
	}

	d.PushSample(sampleAt(46.8721, -113.994, now))
	got, ok := d.Current()
	if !ok {
		t.Fatal("pending sample should trigger a one-shot fusion pass")
	}
	if got.Lat != 46.8721 {
		t.Errorf("got %v", got.Lat)
	}
	// The sample was consumed; a second Current serves the published result.
	if m := d.GetMetrics(); m.PendingSources != 0 {
		t.Errorf("pending must be consumed, got %d", m.PendingSources)
	}
}

func TestDedupeDropsReplays(t *testing.T) {
	d, _ := NewDaemon(nil)
	s := sampleAt(46.8721, -113.994, time.Unix(1724900000, 0))
	d.PushSample(s)
	d.PushSample(s)
	m := d.GetMetrics()
	if m.Deduped != 1 {
		t.Errorf("want 1 deduped, got %d", m.Deduped)
	}
	if m.PendingSources != 1 {
		t.Errorf("want 1 pending source, got %d", m.PendingSources)
	}
}

func TestLatestSampleWinsPerSource(t *testing.T) {
	d, _ := NewDaemon(nil)
	now := time.Now()
	d.PushSample(sampleAt(46.0, -113.0, now))
	d.PushSample(sampleAt(47.0, -114.0, now.Add(time.Second)))
	got, ok := d.Current()
	if !ok {
		t.Fatal("expected a result")
	}
	// Same source: the later sample replaced the earlier one, and a single
	// sample fuses as identity.
	if got.Lat != 47.0 {
		t.Errorf("want the later sample, got lat %v", got.Lat)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	cfg := params.DefaultDaemonConfig()
	cfg.Fusion.Interval = 10 * time.Millisecond
	d, _ := NewDaemon(cfg)

	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(); err != nil {
		t.Fatal("second Start must be a no-op:", err)
	}
	if !d.GetMetrics().Running {
		t.Error("should be running")
	}
	d.Stop()
	d.Stop()
	if d.GetMetrics().Running {
		t.Error("should be stopped")
	}

	// Symmetric: a restart works.
	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	d.Stop()
}

func TestPublishesOnTick(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	cfg := params.DefaultDaemonConfig()
	cfg.Fusion.Interval = 10 * time.Millisecond
	d, _ := NewDaemon(cfg)

	ch := make(chan location.FusedLocation, 8)
	sub := d.SubscribeLocations(ch)
	defer sub.Unsubscribe()

	if err := d.Start(); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	d.PushSample(sampleAt(46.8721, -113.994, time.Now()))

	select {
	case got := <-ch:
		if got.Lat != 46.8721 {
			t.Errorf("got %v", got.Lat)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no fused location published within 2s")
	}
}

func TestMotionFeedbackAdaptsFusion(t *testing.T) {
	d, _ := NewDaemon(nil)
	base := d.config.Fusion.Interval

	d.onTransition(motion.StateChange{
		From: motion.StateUnknown, To: motion.StateDriving,
		Confidence: 0.9, Time: time.Now(),
	})
	if got := d.fusion.Config().Interval; got != base/2 {
		t.Errorf("driving must halve the fusion interval: want %v, got %v", base/2, got)
	}
	if got := d.fusion.Config().Guard.MaxSpeed; got != params.DefaultGuardConfig.MaxSpeed*1.5 {
		t.Errorf("driving must loosen the speed gate, got %v", got)
	}

	d.onTransition(motion.StateChange{
		From: motion.StateDriving, To: motion.StateStationary,
		Confidence: 0.9, Time: time.Now(),
	})
	if got := d.fusion.Config().Interval; got != base*3 {
		t.Errorf("stationary must stretch the fusion interval: want %v, got %v", base*3, got)
	}
}

func TestMotionFeedPublishesTransitions(t *testing.T) {
	d, _ := NewDaemon(nil)
	ch := make(chan motion.StateChange, 4)
	sub := d.SubscribeMotion(ch)
	defer sub.Unsubscribe()

	d.onTransition(motion.StateChange{
		From: motion.StateUnknown, To: motion.StateWalking,
		Confidence: 0.9, Time: time.Now(),
	})
	select {
	case got := <-ch:
		if got.To != motion.StateWalking {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("transition not published")
	}
}

func TestPredictThroughDaemon(t *testing.T) {
	d, _ := NewDaemon(nil)
	now := time.Now()

	if _, ok := d.Predict(time.Second); ok {
		t.Error("prediction without history must return no result")
	}

	d.PushSample(sampleAt(46.8721, -113.994, now))
	d.mu.Lock()
	d.fuseOnce(now)
	d.mu.Unlock()
	d.PushSample(sampleAt(46.8722, -113.994, now.Add(time.Second)))
	d.mu.Lock()
	d.fuseOnce(now.Add(time.Second))
	d.mu.Unlock()

	pred, ok := d.Predict(time.Second)
	if !ok {
		t.Fatal("prediction with two points must work")
	}
	if !pred.Meta.Predicted {
		t.Error("result must be marked predicted")
	}
	if pred.Lat <= 46.8721 {
		t.Errorf("northbound run must predict further north, got %v", pred.Lat)
	}
}

func TestResetColdStart(t *testing.T) {
	d, _ := NewDaemon(nil)
	now := time.Now()
	d.PushSample(sampleAt(46.8721, -113.994, now))
	if _, ok := d.Current(); !ok {
		t.Fatal("expected a result")
	}

	d.Reset()
	if _, ok := d.Current(); ok {
		t.Error("reset must clear the published state")
	}
	if m := d.GetMetrics(); m.PendingSources != 0 {
		t.Errorf("reset must clear pending samples, got %d", m.PendingSources)
	}

	// Filters snap again: the first post-reset fix comes back verbatim.
	d.PushSample(sampleAt(10, 20, now.Add(time.Second)))
	got, ok := d.Current()
	if !ok {
		t.Fatal("expected a result")
	}
	if got.Lat != 10 || got.Lng != 20 {
		t.Errorf("post-reset output must snap, got %v,%v", got.Lat, got.Lng)
	}
}

func TestUpdateConfig(t *testing.T) {
	d, _ := NewDaemon(nil)
	cfg := params.DefaultDaemonConfig()
	cfg.Fusion.Interval = time.Minute
	cfg.Motion.TransitionConfidenceThreshold = 0.9
	if err := d.UpdateConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if got := d.fusion.Config().Interval; got != time.Minute {
		t.Errorf("fusion config not applied: %v", got)
	}
}

func TestUpdateConfigRejectsBadInterval(t *testing.T) {
	d, _ := NewDaemon(nil)
	base := d.fusion.Config().Interval
	bad := params.DefaultDaemonConfig()
	bad.Fusion.Interval = 0
	if err := d.UpdateConfig(bad); err == nil {
		t.Error("zero interval must be rejected, same as NewDaemon")
	}
	// The running config is untouched by a rejected update.
	if got := d.fusion.Config().Interval; got != base {
		t.Errorf("config leaked: %v", got)
	}
}
