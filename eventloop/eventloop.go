// Package eventloop implements the single-threaded cooperative core of
// the daemon: one goroutine owns the assignment store, rule set, and
// foreground tracker; external sources post typed messages into two
// bounded channels (exec events, and all other control messages) and the
// loop drains them serially. A pending control message is always taken
// before any exec message, so arrival order between an exec message and
// a control message is not preserved.
package eventloop

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"scheduler-go/busapi"
	"scheduler-go/cfs"
	"scheduler-go/classify"
	"scheduler-go/config"
	"scheduler-go/foreground"
	"scheduler-go/logging"
	"scheduler-go/procattr"
	"scheduler-go/procinfo"
	"scheduler-go/rules"
	"scheduler-go/store"

	"github.com/godbus/dbus/v5"
)

// Message is the sum type of everything the loop can receive. Exactly
// one of the fields is meaningful per message; Kind discriminates.
type Kind int

const (
	KindExec Kind = iota
	KindFocusChange
	KindAudioDelta
	KindPowerTransition
	KindSweep
	KindBusSetForeground
	KindBusSetProfile
)

type Message struct {
	Kind Kind

	// KindExec
	Pid       int
	ParentPid int
	Exe       string

	// KindFocusChange, KindBusSetForeground
	FocusPid int

	// KindAudioDelta
	AudioPid    int
	AudioActive bool

	// KindPowerTransition
	OnAC bool

	// KindBusSetProfile
	ProfileOverride string
}

// queueCapacity bounds the MPSC channel. Under overload the loop drops
// the oldest exec (introspection) message first; focus and power
// messages are never dropped.
const queueCapacity = 256

// Loop is the owner of all mutable scheduling state.
type Loop struct {
	cfg         *config.Config
	classifier  *classify.Classifier
	store       *store.Store
	tracker     *foreground.Tracker
	applier     func(pid int, profile config.Profile) procattr.Result
	tuner       *cfs.Tuner
	introspect  func(pid int) (*procinfo.ProcInfo, error)
	descendants func(pid int) (map[int]struct{}, error)

	profileOverride string // set via bus SetProfile; "" means automatic AC/battery mapping
	onAC            bool

	// statusMu guards the snapshot read by the bus's CurrentCfsProfile
	// property; the loop thread is the sole writer, the bus goroutine
	// the sole reader, so a single mutex (not full queue round-trip) is
	// enough to keep that one read consistent with loop state.
	statusMu sync.RWMutex

	execQueue chan Message
	ctrlQueue chan Message
	dumpPath  string
}

// Status returns a consistent snapshot of the profile override and
// power state, for the bus property read.
func (l *Loop) Status() (override string, onAC bool) {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.profileOverride, l.onAC
}

// New builds a Loop bound to the given configuration. onACInitial is
// the power state read at startup, used for the first CFS apply.
func New(cfg *config.Config, onACInitial bool, dumpPath string) (*Loop, error) {
	ruleSet, err := rules.Compile(cfg.Assignments, cfg.Exceptions)
	if err != nil {
		return nil, err
	}

	var fgProfile, audioProfile *config.Profile
	if cfg.ForegroundBoostEnabled() {
		p := cfg.ProfileTable[cfg.ForegroundProfileName]
		fgProfile = &p
	}
	if cfg.AudioBoostEnabled() {
		p := cfg.ProfileTable[cfg.PipewireProfileName]
		audioProfile = &p
	}

	l := &Loop{
		cfg:        cfg,
		classifier: classify.New(ruleSet, cfg.ProfileTable),
		store:      store.New(fgProfile, audioProfile),
		applier:    procattr.Apply,
		tuner:      cfs.New(),
		introspect: procinfo.Introspect,
		onAC:       onACInitial,
		execQueue:  make(chan Message, queueCapacity),
		ctrlQueue:  make(chan Message, queueCapacity),
		dumpPath:   dumpPath,
	}
	l.descendants = procinfo.Descendants
	// tracker calls back through l.descendants (not procinfo.Descendants
	// directly) so tests can substitute the descendant resolver without
	// reconstructing the tracker.
	l.tracker = foreground.New(func(pid int) (map[int]struct{}, error) {
		return l.descendants(pid)
	})
	return l, nil
}

// PostExec enqueues an exec event. Non-blocking: if the exec queue is
// full, the oldest pending exec message is dropped to make room, per
// the back-pressure rule (dropped execs are recovered by the next sweep).
func (l *Loop) PostExec(m Message) {
	select {
	case l.execQueue <- m:
	default:
		select {
		case <-l.execQueue:
		default:
		}
		select {
		case l.execQueue <- m:
		default:
		}
	}
}

// PostControl enqueues a focus change, audio delta, power transition,
// sweep tick, or bus command. These are never dropped.
func (l *Loop) PostControl(m Message) {
	l.ctrlQueue <- m
}

// Run drains both queues until ctx is cancelled, preferring control
// messages over exec messages on each iteration so focus and power
// events are never starved by an exec burst.
func (l *Loop) Run(ctx context.Context) {
	l.applyInitialPower()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case m := <-l.ctrlQueue:
			l.handle(m)
		default:
			select {
			case <-ctx.Done():
				l.shutdown()
				return
			case m := <-l.ctrlQueue:
				l.handle(m)
			case m := <-l.execQueue:
				l.handle(m)
			}
		}
	}
}

func (l *Loop) applyInitialPower() {
	l.tuner.Apply(l.currentCfsParams())
}

func (l *Loop) currentCfsParams() config.CfsParams {
	if l.onAC {
		return l.cfg.CfsTuning.AC
	}
	return l.cfg.CfsTuning.Battery
}

func (l *Loop) handle(m Message) {
	switch m.Kind {
	case KindExec:
		l.handleExec(m.Pid, m.ParentPid, m.Exe)
	case KindFocusChange, KindBusSetForeground:
		l.handleFocusChange(m.FocusPid)
	case KindAudioDelta:
		l.handleAudioDelta(m.AudioPid, m.AudioActive)
	case KindPowerTransition:
		l.handlePowerTransition(m.OnAC)
	case KindSweep:
		l.handleSweep()
	case KindBusSetProfile:
		l.handleSetProfileOverride(m.ProfileOverride)
	}
}

// handleExec introspects the new process, classifies it, applies the
// resulting profile if it isn't excepted, and records the assignment.
func (l *Loop) handleExec(pid, parentPid int, exe string) {
	info, err := l.introspect(pid)
	if err != nil {
		logging.Default().Warn("pid gone before introspection completed", "pid", pid, "error", err)
		return
	}

	outcome := l.classifier.Classify(info)
	if outcome.Excepted || outcome.Profile == nil {
		return
	}

	l.store.Record(pid, info.ExePath, outcome.Profile.Name, *outcome.Profile)
	l.reapply(pid)
}

func (l *Loop) handleFocusChange(pid int) {
	if !l.cfg.ForegroundBoostEnabled() {
		return
	}
	if err := l.tracker.SetForeground(l.store, pid, l.reapply); err != nil {
		logging.Default().Warn("failed to resolve descendants for foreground change", "pid", pid, "error", err)
	}
}

func (l *Loop) handleAudioDelta(pid int, active bool) {
	if !l.cfg.AudioBoostEnabled() {
		return
	}
	if !l.store.Tracked(pid) {
		return
	}
	l.store.SetAudio(pid, active)
	l.reapply(pid)
}

func (l *Loop) handlePowerTransition(onAC bool) {
	l.statusMu.Lock()
	l.onAC = onAC
	override := l.profileOverride
	l.statusMu.Unlock()

	if override == "" {
		l.tuner.Apply(l.currentCfsParams())
	}
}

func (l *Loop) handleSetProfileOverride(name string) {
	switch name {
	case "responsive":
		l.statusMu.Lock()
		l.profileOverride = name
		l.statusMu.Unlock()
		l.tuner.Apply(l.cfg.CfsTuning.AC)
	case "default", "":
		l.statusMu.Lock()
		l.profileOverride = name
		l.statusMu.Unlock()
		l.tuner.Apply(l.currentCfsParams())
	default:
		logging.Default().Warn("unknown CFS profile override requested", "name", name)
	}
}

// handleSweep enumerates every pid in /proc: classifies and applies pids
// not yet tracked, forgets tracked pids that no longer exist, and
// re-validates the exe of long-lived tracked pids to catch
// exec-without-reparent.
func (l *Loop) handleSweep() {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		logging.Default().Warn("periodic sweep failed to list /proc", "error", err)
		return
	}

	live := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		pid, convErr := strconv.Atoi(e.Name())
		if convErr != nil {
			continue
		}
		live[pid] = struct{}{}

		info, introErr := l.introspect(pid)
		if introErr != nil {
			continue
		}

		if l.store.Tracked(pid) {
			exePath, _, _ := l.store.Lookup(pid)
			if exePath != info.ExePath {
				// exec-without-reparent: re-classify under the new image.
				l.reclassifyAndRecord(pid, info)
			}
			continue
		}

		l.reclassifyAndRecord(pid, info)
	}

	for _, pid := range l.store.TrackedPids() {
		if _, stillLive := live[pid]; !stillLive {
			l.store.Forget(pid)
		}
	}
}

func (l *Loop) reclassifyAndRecord(pid int, info *procinfo.ProcInfo) {
	outcome := l.classifier.Classify(info)
	if outcome.Excepted || outcome.Profile == nil {
		return
	}
	l.store.Record(pid, info.ExePath, outcome.Profile.Name, *outcome.Profile)
	l.reapply(pid)
}

// reapply pushes the pid's current effective profile to the kernel.
func (l *Loop) reapply(pid int) {
	profile, ok := l.store.EffectiveProfile(pid)
	if !ok {
		return
	}
	res := l.applier(pid, profile)
	if !res.Ok() {
		for _, e := range res.Errs {
			logging.Default().Warn("partial profile application", "pid", pid, "error", e)
		}
	}
}

// shutdown writes the debug dump (when a dump path is set) before the
// loop returns. Tracked pids keep their last applied attributes; with
// RevertOnShutdown set it only logs that a revert was requested, since
// the store records no pre-assignment attributes to revert to.
func (l *Loop) shutdown() {
	if l.cfg.RevertOnShutdown {
		logging.Default().Info("revert on shutdown requested; tracked pids keep their last applied attributes")
		// The store keeps no pre-assignment baseline per pid, so there
		// are no values to revert to.
	}
	if l.dumpPath != "" {
		if err := l.store.DumpToFile(l.dumpPath); err != nil {
			logging.Default().Warn("failed to write debug dump", "error", err)
		}
	}
	logging.Default().Info("event loop shut down")
}

// PeriodicSweeper runs on its own goroutine, posting a sweep message to
// the loop every interval until ctx is cancelled.
func PeriodicSweeper(ctx context.Context, l *Loop, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.PostControl(Message{Kind: KindSweep})
		}
	}
}

// BusAdapter implements busapi.Commands by posting onto the loop's
// control queue; it never touches loop state directly.
type BusAdapter struct {
	loop *Loop
}

// NewBusAdapter binds a busapi.Commands implementation to loop.
func NewBusAdapter(loop *Loop) *BusAdapter {
	return &BusAdapter{loop: loop}
}

func (b *BusAdapter) SetForeground(pid uint32) *dbus.Error {
	b.loop.PostControl(Message{Kind: KindBusSetForeground, FocusPid: int(pid)})
	return nil
}

func (b *BusAdapter) SetProfile(name string) *dbus.Error {
	if name != "responsive" && name != "default" {
		return dbus.NewError(busapi.InterfaceName+".InvalidProfile", []interface{}{"profile must be \"responsive\" or \"default\""})
	}
	b.loop.PostControl(Message{Kind: KindBusSetProfile, ProfileOverride: name})
	return nil
}

func (b *BusAdapter) CurrentCfsProfile() (string, *dbus.Error) {
	override, onAC := b.loop.Status()
	if override != "" {
		return override, nil
	}
	if onAC {
		return "ac", nil
	}
	return "battery", nil
}
