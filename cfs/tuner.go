// Package cfs writes the kernel's fair-scheduler tunables to their
// conventional /proc/sys/kernel/sched_* paths. Knobs absent on the
// running kernel (version skew) are warned-and-skipped rather than
// treated as fatal.
package cfs

import (
	"os"
	"strconv"

	"scheduler-go/config"
	"scheduler-go/logging"
)

// knobPath pairs a CfsParams field with the procfs path it is written to.
type knobPath struct {
	name  string
	path  string
	value func(config.CfsParams) uint64
}

var knobs = []knobPath{
	{"latency_ns", "/proc/sys/kernel/sched_latency_ns", func(p config.CfsParams) uint64 { return p.LatencyNs }},
	{"min_granularity_ns", "/proc/sys/kernel/sched_min_granularity_ns", func(p config.CfsParams) uint64 { return p.MinGranularityNs }},
	{"wakeup_granularity_ns", "/proc/sys/kernel/sched_wakeup_granularity_ns", func(p config.CfsParams) uint64 { return p.WakeupGranularityNs }},
	{"migration_cost_ns", "/proc/sys/kernel/sched_migration_cost_ns", func(p config.CfsParams) uint64 { return p.MigrationCostNs }},
	{"bandwidth_size_us", "/proc/sys/kernel/sched_cfs_bandwidth_slice_us", func(p config.CfsParams) uint64 { return p.BandwidthSizeUs }},
}

// Tuner writes CfsParams to the kernel. writeFile is overridable so
// tests can intercept writes without touching real /proc paths.
type Tuner struct {
	writeFile func(path string, data []byte) error
}

// New builds a Tuner that writes to the real procfs paths.
func New() *Tuner {
	return &Tuner{writeFile: func(path string, data []byte) error {
		return os.WriteFile(path, data, 0644)
	}}
}

// newWithWriter is used by tests to substitute an in-memory writer.
func newWithWriter(w func(path string, data []byte) error) *Tuner {
	return &Tuner{writeFile: w}
}

// Applied records which knobs were actually written, so a power
// transition can be verified as exactly these five kernel writes.
type Applied struct {
	Written []string
	Skipped []string
}

// Apply writes every knob in params, skipping (and logging once) any
// whose path does not exist on this kernel.
func (t *Tuner) Apply(params config.CfsParams) Applied {
	var result Applied
	for _, k := range knobs {
		data := []byte(strconv.FormatUint(k.value(params), 10))
		if err := t.writeFile(k.path, data); err != nil {
			if os.IsNotExist(err) {
				logging.Default().Warn("kernel tunable not present on this kernel, skipping", "knob", k.name, "path", k.path)
				result.Skipped = append(result.Skipped, k.name)
				continue
			}
			logging.Default().Warn("failed to write kernel tunable", "knob", k.name, "path", k.path, "error", err)
			result.Skipped = append(result.Skipped, k.name)
			continue
		}
		result.Written = append(result.Written, k.name)
	}
	return result
}
