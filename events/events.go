/*
Package events holds the host-level announcement feeds.

The fusion core publishes only on per-daemon instance feeds; hosts that
want a single process-wide tap (a CLI, an embedding app with several
daemons) bridge daemon subscriptions onto these. The core never sends
here itself.
*/
package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
)

// NewFusedLocationFeed announces fused locations bridged from any daemon.
var NewFusedLocationFeed = event.FeedOf[location.FusedLocation]{}

// MotionTransitionFeed announces accepted motion-state transitions.
// Transitions that fail the confidence gate never reach a daemon's feed,
// so they never reach this one either.
var MotionTransitionFeed = event.FeedOf[motion.StateChange]{}
