// Package foreground implements the descendant-closure tracking behind
// foreground boosting: the focused pid and its descendants get the
// foreground profile; everything else reverts to its assigned profile.
package foreground

// Store is the subset of store.Store the tracker needs. Defined here
// rather than imported directly so this package stays decoupled from
// the store's concrete type (it is driven by the event loop, which
// holds both).
type Store interface {
	SetForeground(pid int, on bool)
	Tracked(pid int) bool
}

// DescendantsFunc resolves the transitive descendant set of a pid,
// normally procinfo.Descendants. Injected so tests do not need a real
// /proc tree.
type DescendantsFunc func(pid int) (map[int]struct{}, error)

// Tracker holds the currently focused pid and the set of pids
// presently carrying the foreground boost.
type Tracker struct {
	descendants     DescendantsFunc
	currentForeground int
	hasForeground     bool
	boostedSet        map[int]struct{}
}

// New builds a Tracker with no current foreground pid.
func New(descendants DescendantsFunc) *Tracker {
	return &Tracker{
		descendants: descendants,
		boostedSet:  make(map[int]struct{}),
	}
}

// Reapplier applies the pid's current effective profile to the kernel;
// the caller supplies it bound to the real store+procattr pipeline.
type Reapplier func(pid int)

// SetForeground computes the new descendant closure, reverts what fell
// out of it, boosts what's new, then swaps. A newPid that no longer
// exists simply yields an empty descendant set rather than aborting
// the revert of the previous closure.
func (t *Tracker) SetForeground(store Store, newPid int, reapply Reapplier) error {
	newSet := map[int]struct{}{newPid: {}}
	if descendants, err := t.descendants(newPid); err == nil {
		for pid := range descendants {
			newSet[pid] = struct{}{}
		}
	}

	for pid := range t.boostedSet {
		if _, stillIn := newSet[pid]; !stillIn {
			store.SetForeground(pid, false)
			reapply(pid)
		}
	}

	for pid := range newSet {
		if _, wasIn := t.boostedSet[pid]; !wasIn {
			store.SetForeground(pid, true)
			reapply(pid)
		}
	}

	t.boostedSet = newSet
	t.currentForeground = newPid
	t.hasForeground = true
	return nil
}

// CurrentForeground returns the currently focused pid, if any.
func (t *Tracker) CurrentForeground() (int, bool) {
	return t.currentForeground, t.hasForeground
}

// BoostedSet returns a copy of the pids currently carrying the
// foreground boost.
func (t *Tracker) BoostedSet() map[int]struct{} {
	out := make(map[int]struct{}, len(t.boostedSet))
	for pid := range t.boostedSet {
		out[pid] = struct{}{}
	}
	return out
}
