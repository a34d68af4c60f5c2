package guard

import (
	"math"
	"testing"
	"time"

	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/location"
)

func validSample(t time.Time) location.RawSample {
	return location.RawSample{
		Lat: 46.87, Lng: -113.99,
		Accuracy: 5,
		Time:     t,
		Source:   location.SourceGPS,
	}
}

func TestRejectsBadLatitude(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	s := validSample(time.Now())
	s.Lat = 95
	// Other fields are pristine; latitude alone must sink it.
	if r := g.Check(s, location.FusedLocation{}); r != ReasonCoordinates {
		t.Errorf("lat=95 must be rejected for coordinates, got %v", r)
	}
}

func TestRejectsBadLongitude(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	s := validSample(time.Now())
	s.Lng = -181
	if r := g.Check(s, location.FusedLocation{}); r != ReasonCoordinates {
		t.Errorf("lng=-181 must be rejected, got %v", r)
	}
}

func TestRejectsPoorAccuracy(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	s := validSample(time.Now())
	s.Accuracy = 250
	if r := g.Check(s, location.FusedLocation{}); r != ReasonAccuracy {
		t.Errorf("accuracy=250 must be rejected, got %v", r)
	}
}

func TestRejectsNonFiniteAccuracy(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	for _, acc := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := validSample(time.Now())
		s.Accuracy = acc
		if r := g.Check(s, location.FusedLocation{}); r != ReasonAccuracy {
			t.Errorf("accuracy=%v must be rejected, got %v", acc, r)
		}
	}
}

func TestRejectsImpossibleReportedSpeed(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	s := validSample(time.Now())
	s.Speed, s.HasSpeed = 150, true
	if r := g.Check(s, location.FusedLocation{}); r != ReasonSpeed {
		t.Errorf("speed=150 must be rejected, got %v", r)
	}
}

func TestRejectsTeleportation(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	now := time.Now()
	last := location.FusedLocation{
		Lat: 46.87, Lng: -113.99,
		Accuracy: 5, Time: now,
	}
	// One degree of longitude in one second. Reported fields look fine.
	s := validSample(now.Add(time.Second))
	s.Lng = -114.99
	s.Speed, s.HasSpeed = 1.0, true
	if r := g.Check(s, last); r != ReasonTeleport {
		t.Errorf("implied-speed jump must be rejected as teleport, got %v", r)
	}
}

func TestSignalLossIsNotTeleportation(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	now := time.Now()
	last := location.FusedLocation{
		Lat: 46.87, Lng: -113.99,
		Accuracy: 5, Time: now,
	}
	// Same jump, but an hour later: the implied speed is pedestrian.
	s := validSample(now.Add(time.Hour))
	s.Lng = -114.99
	if r := g.Check(s, last); r != ReasonNone {
		t.Errorf("slow implied speed must pass, got %v", r)
	}
}

func TestAcceptsValid(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	if r := g.Check(validSample(time.Now()), location.FusedLocation{}); r != ReasonNone {
		t.Errorf("valid sample rejected: %v", r)
	}
}

func TestCountersAndRate(t *testing.T) {
	g := New(params.DefaultGuardConfig)
	now := time.Now()
	g.Check(validSample(now), location.FusedLocation{})
	bad := validSample(now)
	bad.Lat = 95
	g.Check(bad, location.FusedLocation{})

	c := g.Counters()
	if c.Checked != 2 || c.Rejected != 1 || c.Coordinates != 1 {
		t.Errorf("counters off: %+v", c)
	}
	if rate := c.OutlierRate(); rate != 0.5 {
		t.Errorf("want outlier rate 0.5, got %v", rate)
	}
}
