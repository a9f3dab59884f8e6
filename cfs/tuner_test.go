package cfs

import (
	"os"
	"testing"

	"scheduler-go/config"

	"github.com/stretchr/testify/require"
)

func TestApply_WritesExactlyFiveKnobs(t *testing.T) {
	written := map[string]string{}
	tuner := newWithWriter(func(path string, data []byte) error {
		written[path] = string(data)
		return nil
	})

	params := config.CfsParams{
		LatencyNs:           4000000,
		MinGranularityNs:    500000,
		WakeupGranularityNs: 1000000,
		MigrationCostNs:     250000,
		BandwidthSizeUs:     5000,
	}
	result := tuner.Apply(params)

	require.Len(t, result.Written, 5)
	require.Len(t, written, 5)
	require.Equal(t, "4000000", written["/proc/sys/kernel/sched_latency_ns"])
}

func TestApply_SkipsMissingKnob(t *testing.T) {
	tuner := newWithWriter(func(path string, data []byte) error {
		if path == "/proc/sys/kernel/sched_migration_cost_ns" {
			return os.ErrNotExist
		}
		return nil
	})

	result := tuner.Apply(config.CfsParams{})
	require.Len(t, result.Written, 4)
	require.Equal(t, []string{"migration_cost_ns"}, result.Skipped)
}
