/*
Package metrics holds the small statistical helpers the engines use for
their diagnostic snapshots.
*/
package metrics

// EWMA is an exponentially-weighted moving average with a fixed alpha.
// Not safe for concurrent use; owners serialize access.
type EWMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEWMA returns an EWMA with the given smoothing factor in (0,1].
// Alpha 1 tracks the latest value exactly.
func NewEWMA(alpha float64) *EWMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &EWMA{alpha: alpha}
}

// Update folds a new observation in. The first observation primes the
// average exactly, same snap rule as the Kalman filter.
func (e *EWMA) Update(v float64) {
	if !e.primed {
		e.value = v
		e.primed = true
		return
	}
	e.value = (1-e.alpha)*e.value + e.alpha*v
}

// Value returns the current average, 0 before any observation.
func (e *EWMA) Value() float64 { return e.value }

// Primed reports whether the average has seen an observation.
func (e *EWMA) Primed() bool { return e.primed }

// Reset forgets everything.
func (e *EWMA) Reset() {
	e.value = 0
	e.primed = false
}
