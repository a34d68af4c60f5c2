/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotblauer/catfuse/daemon/fusord"
	"github.com/rotblauer/catfuse/events"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/stream"
	"github.com/rotblauer/catfuse/types"
	"github.com/rotblauer/catfuse/types/location"
	"github.com/rotblauer/catfuse/types/motion"
	"github.com/spf13/cobra"
)

var optFusionInterval time.Duration
var optAnalysisInterval time.Duration
var optImmediate bool
var optMeterInterval time.Duration

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fuse location and sensor samples from stdin",
	Long: `

Reads newline-delimited JSON from stdin: location samples (lat/lng/accuracy/
time plus a provider tag) and 3-axis sensor samples (x/y/z/time plus a sensor
tag), mixed freely. Field-name variants from the usual providers are
tolerated.

Fused locations are written to stdout as NDJSON, one per fusion cycle.
Accepted motion-state transitions are logged to stderr.

Examples:

  zcat samples.json.gz | catfuse run --fusion-interval 1s
  adb-sensor-dump | catfuse run --immediate
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		cfg := params.DefaultDaemonConfig()
		cfg.Fusion.Interval = optFusionInterval
		cfg.Motion.AnalysisInterval = optAnalysisInterval
		cfg.Motion.ImmediateAnalysis = optImmediate

		d, err := fusord.NewDaemon(cfg)
		if err != nil {
			slog.Error("fusord.NewDaemon failed", "error", err)
			os.Exit(1)
		}

		locCh := make(chan location.FusedLocation, 64)
		motCh := make(chan motion.StateChange, 8)
		locSub := d.SubscribeLocations(locCh)
		motSub := d.SubscribeMotion(motCh)
		defer locSub.Unsubscribe()
		defer motSub.Unsubscribe()

		if err := d.Start(); err != nil {
			slog.Error("fusord.Start failed", "error", err)
			os.Exit(1)
		}

		writerQuit := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			enc := json.NewEncoder(os.Stdout)
			for {
				select {
				case loc := <-locCh:
					events.NewFusedLocationFeed.Send(loc)
					if err := enc.Encode(loc); err != nil {
						slog.Error("Encode fused location failed", "error", err)
					}
				case change := <-motCh:
					events.MotionTransitionFeed.Send(change)
					slog.Info("Transition", "state", change.To,
						"emoji", change.To.Emoji(), "confidence", change.Confidence)
				case <-writerQuit:
					return
				}
			}
		}()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

		meter := stream.NewTickMeter(optMeterInterval)
		lines := make(chan []byte)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
			for scanner.Scan() {
				line := make([]byte, len(scanner.Bytes()))
				copy(line, scanner.Bytes())
				lines <- line
			}
		}()

	read:
		for {
			select {
			case <-interrupt:
				slog.Warn("Interrupted")
				break read
			case line, ok := <-lines:
				if !ok {
					break read
				}
				if types.IsSensorLine(line) {
					s, err := types.DecodeSensorSample(line)
					if err != nil {
						slog.Debug("Undecodable sensor line", "error", err)
						continue
					}
					meter.Mark(s.Time, line)
					d.PushSensor(s)
					continue
				}
				s, err := types.DecodeRawSample(line)
				if err != nil {
					slog.Debug("Undecodable location line", "error", err)
					continue
				}
				meter.Mark(s.Time, line)
				d.PushSample(s)
			}
		}

		// Let the final fusion tick drain what's pending before teardown.
		time.Sleep(cfg.Fusion.Interval)
		d.Stop()
		meter.Stop()
		close(writerQuit)
		wg.Wait()

		m := d.GetMetrics()
		slog.Info("Done", "cycles", m.Fusion.Cycles,
			"outlier.rate", m.Fusion.OutlierRate,
			"avg.accuracy", m.Fusion.AvgAccuracy,
			"motion", m.Motion.State,
			"transitions", m.Motion.Transitions)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&optFusionInterval, "fusion-interval",
		params.DefaultFusionConfig.Interval, "Fusion cycle cadence")
	runCmd.Flags().DurationVar(&optAnalysisInterval, "analysis-interval",
		params.DefaultMotionConfig.AnalysisInterval, "Motion analysis cadence")
	runCmd.Flags().BoolVar(&optImmediate, "immediate", false,
		"Re-classify motion on every sample instead of on the analysis timer")
	runCmd.Flags().DurationVar(&optMeterInterval, "meter", 10*time.Second,
		"Throughput log interval")
}
