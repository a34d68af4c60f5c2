package events

import (
	"testing"
	"time"

	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

func TestFeedsDeliver(t *testing.T) {
	locCh := make(chan location.FusedLocation, 1)
	locSub := NewFusedLocationFeed.Subscribe(locCh)
	defer locSub.Unsubscribe()

	motCh := make(chan motion.StateChange, 1)
	motSub := MotionTransitionFeed.Subscribe(motCh)
	defer motSub.Unsubscribe()

	NewFusedLocationFeed.Send(location.FusedLocation{Lat: 46.87, Time: time.Now()})
	MotionTransitionFeed.Send(motion.StateChange{To: motion.StateWalking})

	select {
	case got := <-locCh:
		if got.Lat != 46.87 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("location not delivered")
	}
	select {
	case got := <-motCh:
		if got.To != motion.StateWalking {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("transition not delivered")
	}
}
