package eventloop

import (
	"testing"

	"scheduler-go/config"
	"scheduler-go/procattr"
	"scheduler-go/procinfo"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func newTestLoop(t *testing.T, cfg *config.Config) *Loop {
	t.Helper()
	l, err := New(cfg, true, "")
	require.NoError(t, err)
	applied := map[int]config.Profile{}
	l.applier = func(pid int, profile config.Profile) procattr.Result {
		applied[pid] = profile
		return procattr.Result{Pid: pid, NiceApplied: profile.Nice != nil}
	}
	return l
}

// TestHandleExec_ExceptionSuppressesApply verifies an exception on an
// exe path means no record, no apply.
func TestHandleExec_ExceptionSuppressesApply(t *testing.T) {
	cfg := &config.Config{
		ProfileTable: config.ProfileTable{
			"quiet": {Name: "quiet", Nice: intPtr(19)},
		},
		Exceptions: []config.Exception{
			{Selector: config.Selector{Kind: config.SelectExe, Value: "/usr/bin/top"}},
		},
	}
	l := newTestLoop(t, cfg)
	l.introspect = func(pid int) (*procinfo.ProcInfo, error) {
		return &procinfo.ProcInfo{Pid: pid, ExePath: "/usr/bin/top", Comm: "top"}, nil
	}

	l.handleExec(100, 1, "/usr/bin/top")

	require.False(t, l.store.Tracked(100), "excepted pid must not be recorded")
}

func TestHandleExec_AssignmentApplies(t *testing.T) {
	cfg := &config.Config{
		ProfileTable: config.ProfileTable{
			"quiet": {Name: "quiet", Nice: intPtr(19), Sched: &config.SchedAttr{Policy: config.SchedIdle}, IO: &config.IOAttr{Class: config.IOIdle}},
		},
		Assignments: []config.AssignmentRule{
			{Selector: config.Selector{Kind: config.SelectName, Value: "rustc"}, ProfileName: "quiet"},
		},
	}
	l := newTestLoop(t, cfg)
	l.introspect = func(pid int) (*procinfo.ProcInfo, error) {
		return &procinfo.ProcInfo{Pid: pid, Comm: "rustc"}, nil
	}

	l.handleExec(101, 1, "/usr/bin/rustc")

	require.True(t, l.store.Tracked(101))
	profile, ok := l.store.EffectiveProfile(101)
	require.True(t, ok)
	require.Equal(t, "quiet", profile.Name)
}

// TestForegroundBoost_OverridesAssignment verifies a focused pid takes
// the foreground profile wholesale, and reverts once focus moves away.
func TestForegroundBoost_OverridesAssignment(t *testing.T) {
	cfg := &config.Config{
		ForegroundProfileName: "fg",
		ProfileTable: config.ProfileTable{
			"fg":   {Name: "fg", Nice: intPtr(-5)},
			"base": {Name: "base", Nice: intPtr(0)},
		},
		Assignments: []config.AssignmentRule{
			{Selector: config.Selector{Kind: config.SelectName, Value: "game"}, ProfileName: "base"},
		},
	}
	l := newTestLoop(t, cfg)
	l.introspect = func(pid int) (*procinfo.ProcInfo, error) {
		return &procinfo.ProcInfo{Pid: pid, Comm: "game"}, nil
	}
	l.descendants = func(pid int) (map[int]struct{}, error) { return nil, nil }

	l.handleExec(200, 1, "/usr/bin/game")

	l.handleFocusChange(200)
	profile, ok := l.store.EffectiveProfile(200)
	require.True(t, ok)
	require.Equal(t, -5, *profile.Nice, "expected foreground boost while focused")

	l.handleFocusChange(999) // pid that does not exist
	profile, ok = l.store.EffectiveProfile(200)
	require.True(t, ok)
	require.Equal(t, 0, *profile.Nice, "expected revert once focus moves away")
}

func TestWildcardParentCondition(t *testing.T) {
	cfg := &config.Config{
		ProfileTable: config.ProfileTable{
			"bashkids": {Name: "bashkids", Nice: intPtr(10)},
		},
		Assignments: []config.AssignmentRule{
			{
				Selector:    config.Selector{Kind: config.SelectWildcard},
				ProfileName: "bashkids",
				Condition:   &config.Condition{Parent: &config.GlobCondition{Pattern: "bash"}},
			},
		},
	}
	l := newTestLoop(t, cfg)
	l.introspect = func(pid int) (*procinfo.ProcInfo, error) {
		return &procinfo.ProcInfo{Pid: pid, Comm: "child", ParentComm: "bash"}, nil
	}

	l.handleExec(300, 1, "/usr/bin/child")
	require.True(t, l.store.Tracked(300), "expected match for parent=bash")
}

func TestAudioBoost_OverridesAndReverts(t *testing.T) {
	cfg := &config.Config{
		PipewireProfileName: "audio",
		ProfileTable: config.ProfileTable{
			"audio": {Name: "audio", Nice: intPtr(-6)},
			"base":  {Name: "base", Nice: intPtr(0)},
		},
		Assignments: []config.AssignmentRule{
			{Selector: config.Selector{Kind: config.SelectName, Value: "pulse"}, ProfileName: "base"},
		},
	}
	l := newTestLoop(t, cfg)
	l.introspect = func(pid int) (*procinfo.ProcInfo, error) {
		return &procinfo.ProcInfo{Pid: pid, Comm: "pulse"}, nil
	}

	l.handleExec(500, 1, "/usr/bin/pulse")
	l.handleAudioDelta(500, true)
	profile, ok := l.store.EffectiveProfile(500)
	require.True(t, ok)
	require.Equal(t, -6, *profile.Nice, "expected audio boost while active")

	l.handleAudioDelta(500, false)
	profile, ok = l.store.EffectiveProfile(500)
	require.True(t, ok)
	require.Equal(t, 0, *profile.Nice, "expected revert once audio deactivates")
}

// TestPowerTransition_RecordsPowerState verifies a power source change
// to battery is reflected in the status the bus reads, with no profile
// override set. The CFS writes themselves are not observed here.
func TestPowerTransition_RecordsPowerState(t *testing.T) {
	cfg := &config.Config{
		CfsTuning: config.CfsTuning{
			AC:      config.CfsParams{LatencyNs: 4000000},
			Battery: config.CfsParams{LatencyNs: 6000000},
		},
	}
	l := newTestLoop(t, cfg)

	l.handlePowerTransition(false)
	override, onAC := l.Status()
	require.Empty(t, override)
	require.False(t, onAC)
}

func TestHandleSweep_ForgetsDeadPids(t *testing.T) {
	cfg := &config.Config{
		ProfileTable: config.ProfileTable{
			"base": {Name: "base", Nice: intPtr(0)},
		},
	}
	l := newTestLoop(t, cfg)
	l.store.Record(99999999, "/bin/ghost", "base", cfg.ProfileTable["base"])

	l.handleSweep()

	require.False(t, l.store.Tracked(99999999), "expected dead pid to be forgotten after sweep")
}

func TestSetProfileOverride_Responsive(t *testing.T) {
	cfg := &config.Config{
		CfsTuning: config.CfsTuning{
			AC:      config.CfsParams{LatencyNs: 4000000},
			Battery: config.CfsParams{LatencyNs: 6000000},
		},
	}
	l := newTestLoop(t, cfg)

	l.handleSetProfileOverride("responsive")
	override, _ := l.Status()
	require.Equal(t, "responsive", override)

	l.handleSetProfileOverride("default")
	override, _ = l.Status()
	require.Equal(t, "default", override)
}
