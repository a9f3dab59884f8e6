package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	scherrors "scheduler-go/errors"
	"scheduler-go/logging"

	"gopkg.in/yaml.v3"
)

// CfsParams are the kernel's fair-scheduler knobs, written as-is.
type CfsParams struct {
	LatencyNs          uint64 `yaml:"latency_ns"`
	MinGranularityNs   uint64 `yaml:"min_granularity_ns"`
	WakeupGranularityNs uint64 `yaml:"wakeup_granularity_ns"`
	MigrationCostNs    uint64 `yaml:"migration_cost_ns"`
	BandwidthSizeUs    uint64 `yaml:"bandwidth_size_us"`
}

// CfsTuning pairs the AC and battery parameter sets.
type CfsTuning struct {
	AC      CfsParams `yaml:"ac"`
	Battery CfsParams `yaml:"battery"`
}

// Config is the fully resolved, loaded daemon configuration.
type Config struct {
	ProfileTable          ProfileTable
	ForegroundProfileName string // empty means foreground boosting inactive
	BackgroundProfileName string
	PipewireProfileName   string // empty means audio boosting inactive
	Assignments           []AssignmentRule
	Exceptions            []Exception
	CfsTuning             CfsTuning

	// SweepInterval is how often the periodic sweep runs (default 60s).
	SweepInterval int // seconds, 0 means use the default
	// RevertOnShutdown makes the event loop log at shutdown that a revert
	// was requested; tracked pids are not reverted, as no pre-assignment
	// attributes are recorded.
	RevertOnShutdown bool
}

// fileDoc is the YAML wire shape of a single main-config or fragment file.
type fileDoc struct {
	Profiles  map[string]Profile `yaml:"profiles,omitempty"`
	Foreground string            `yaml:"foreground_profile,omitempty"`
	Background string            `yaml:"background_profile,omitempty"`
	Pipewire   string            `yaml:"pipewire_profile,omitempty"`
	Assignments []rawRule        `yaml:"assignments,omitempty"`
	Exceptions  []rawRule        `yaml:"exceptions,omitempty"`
	CfsTuning   *CfsTuning       `yaml:"cfs,omitempty"`
	SweepSeconds int             `yaml:"sweep_seconds,omitempty"`
	RevertOnShutdown bool        `yaml:"revert_on_shutdown,omitempty"`
}

func readDoc(path string) (*fileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, scherrors.WrapWithDetail(err, scherrors.ErrInvalidConfig, "parse", path)
	}
	return &doc, nil
}

// Load merges configuration sources: the system path fully overrides
// the distribution path when present; fragments from dropinDir are applied
// in lexicographic filename order, each appending to assignments/exceptions.
func Load(systemPath, distPath, dropinDir string) (*Config, error) {
	mainPath := distPath
	if systemPath != "" {
		if _, err := os.Stat(systemPath); err == nil {
			mainPath = systemPath
		}
	}
	if mainPath == "" {
		return nil, scherrors.ErrMissingConfig
	}

	doc, err := readDoc(mainPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scherrors.ErrMissingConfig
		}
		return nil, err
	}

	cfg := &Config{
		ForegroundProfileName: doc.Foreground,
		BackgroundProfileName: doc.Background,
		PipewireProfileName:   doc.Pipewire,
		SweepInterval:         doc.SweepSeconds,
		RevertOnShutdown:      doc.RevertOnShutdown,
	}
	if doc.CfsTuning != nil {
		cfg.CfsTuning = *doc.CfsTuning
	}

	rawProfiles := make(map[string]Profile, len(doc.Profiles))
	var order []string
	for name, p := range doc.Profiles {
		rawProfiles[name] = p
		order = append(order, name)
	}
	sort.Strings(order) // deterministic in absence of an explicit ordered map in YAML

	assignments, exceptions, err := appendRules(nil, nil, doc.Assignments, doc.Exceptions)
	if err != nil {
		return nil, err
	}

	if dropinDir != "" {
		entries, err := os.ReadDir(dropinDir)
		if err != nil && !os.IsNotExist(err) {
			return nil, scherrors.Wrap(err, scherrors.ErrInvalidConfig, "read dropin dir")
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			fragPath := filepath.Join(dropinDir, name)
			frag, err := readDoc(fragPath)
			if err != nil {
				return nil, err
			}
			for pname, p := range frag.Profiles {
				if _, exists := rawProfiles[pname]; !exists {
					order = append(order, pname)
				}
				rawProfiles[pname] = p
			}
			assignments, exceptions, err = appendRules(assignments, exceptions, frag.Assignments, frag.Exceptions)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fragPath, err)
			}
			if frag.Foreground != "" {
				cfg.ForegroundProfileName = frag.Foreground
			}
			if frag.Background != "" {
				cfg.BackgroundProfileName = frag.Background
			}
			if frag.Pipewire != "" {
				cfg.PipewireProfileName = frag.Pipewire
			}
		}
	}

	table, err := resolveInheritance(order, rawProfiles)
	if err != nil {
		return nil, err
	}
	cfg.ProfileTable = table
	cfg.Assignments = assignments
	cfg.Exceptions = exceptions

	if err := cfg.validateReferences(); err != nil {
		return nil, err
	}

	logging.Default().Info("configuration loaded",
		"profiles", len(cfg.ProfileTable),
		"assignments", len(cfg.Assignments),
		"exceptions", len(cfg.Exceptions))

	return cfg, nil
}

func appendRules(assignments []AssignmentRule, exceptions []Exception, rawAssign, rawExcept []rawRule) ([]AssignmentRule, []Exception, error) {
	for _, r := range rawAssign {
		a, err := r.toAssignment()
		if err != nil {
			return nil, nil, err
		}
		assignments = append(assignments, a)
	}
	for _, r := range rawExcept {
		e, err := r.toException()
		if err != nil {
			return nil, nil, err
		}
		exceptions = append(exceptions, e)
	}
	return assignments, exceptions, nil
}

// validateReferences ensures every assignment names a profile that exists.
func (c *Config) validateReferences() error {
	for _, a := range c.Assignments {
		if _, ok := c.ProfileTable[a.ProfileName]; !ok {
			return scherrors.WrapWithDetail(scherrors.ErrUnknownProfileName, scherrors.ErrInvalidConfig, "validate", a.ProfileName)
		}
	}
	if c.ForegroundProfileName != "" {
		if _, ok := c.ProfileTable[c.ForegroundProfileName]; !ok {
			return scherrors.WrapWithDetail(scherrors.ErrUnknownProfileName, scherrors.ErrInvalidConfig, "validate", c.ForegroundProfileName)
		}
	}
	if c.BackgroundProfileName != "" {
		if _, ok := c.ProfileTable[c.BackgroundProfileName]; !ok {
			return scherrors.WrapWithDetail(scherrors.ErrUnknownProfileName, scherrors.ErrInvalidConfig, "validate", c.BackgroundProfileName)
		}
	}
	if c.PipewireProfileName != "" {
		if _, ok := c.ProfileTable[c.PipewireProfileName]; !ok {
			return scherrors.WrapWithDetail(scherrors.ErrUnknownProfileName, scherrors.ErrInvalidConfig, "validate", c.PipewireProfileName)
		}
	}
	return nil
}

// ForegroundBoostEnabled reports whether foreground boosting is configured.
func (c *Config) ForegroundBoostEnabled() bool {
	return c.ForegroundProfileName != ""
}

// AudioBoostEnabled reports whether audio-session boosting is configured.
func (c *Config) AudioBoostEnabled() bool {
	return c.PipewireProfileName != ""
}

// SweepPeriodSeconds returns the configured sweep interval or the default.
func (c *Config) SweepPeriodSeconds() int {
	if c.SweepInterval > 0 {
		return c.SweepInterval
	}
	return 60
}

// sanitizeProfileName derives a profile name from a filename stem,
// dropping directory and extension so no path separator can leak into a
// map key. Load does not call it: fragment profiles keep the names
// written in the file.
func sanitizeProfileName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}
