package params

import "time"

type DaemonConfig struct {
	Fusion FusionConfig
	Motion MotionConfig

	// CleanupInterval is the cadence of the slow buffer sweep
	// (age-based eviction across engines and the per-source cache).
	CleanupInterval time.Duration

	// SampleTTL is how long a provider's last sample stays eligible for
	// fusion. A source gone quiet longer than this contributes nothing.
	SampleTTL time.Duration

	// DedupeCacheSize bounds the LRU used to drop replayed provider samples.
	DedupeCacheSize int
}

func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Fusion:          DefaultFusionConfig,
		Motion:          DefaultMotionConfig,
		CleanupInterval: 30 * time.Second,
		SampleTTL:       30 * time.Second,
		DedupeCacheSize: 4096,
	}
}
