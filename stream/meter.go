package stream

import (
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/catfuse/common"
)

// TickMeter logs sample-ingest throughput on an interval.
// Mark it per decoded line; Stop it when the stream ends.
type TickMeter struct {
	label      time.Time // any value, eg sample.Time
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	nn         atomic.Uint64
	count      metrics.Counter
	size       metrics.Counter
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

func NewTickMeter(interval time.Duration) *TickMeter {
	// Enable metrics package.
	// Won't work without this global setting.
	metrics.Enabled = true

	tm := &TickMeter{
		interval:   interval,
		started:    time.Now(),
		count:      metrics.NewCounter(),
		size:       metrics.NewCounter(),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	go tm.run()
	return tm
}

func (tm *TickMeter) Mark(label time.Time, data []byte) {
	tm.label = label
	tm.nn.Add(1)
	tm.count.Inc(1)
	tm.size.Inc(int64(len(data)))
	tm.countMeter.Mark(1)
	tm.sizeMeter.Mark(int64(len(data)))
}

func (tm *TickMeter) run() {
	tm.ticker = time.NewTicker(tm.interval)
	for range tm.ticker.C {
		tm.log()
	}
}

func (tm *TickMeter) log() {
	countSnap := tm.countMeter.Snapshot()
	sizeSnap := tm.sizeMeter.Snapshot()

	slog.Info("Read samples", "n", humanize.Comma(countSnap.Count()),
		"read.last", tm.label.Format(time.DateTime),
		"sps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(tm.started).Round(time.Second))
}

func (tm *TickMeter) Stop() {
	if tm == nil || tm.ticker == nil {
		return
	}
	tm.ticker.Stop()
	tm.countMeter.Stop()
	tm.sizeMeter.Stop()
}
