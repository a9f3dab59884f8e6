// Package store tracks, per pid, the assigned profile and any active
// boost flags, and resolves the single profile that should currently be
// in effect. It is loop-local: every operation assumes single-threaded,
// synchronous access from the event loop, never concurrent callers.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"scheduler-go/config"
	scherrors "scheduler-go/errors"
)

// entry is everything the store remembers about one pid.
type entry struct {
	Pid         int            `json:"pid"`
	ExePath     string         `json:"exe_path"`
	ProfileName string         `json:"profile_name"`
	Assigned    config.Profile `json:"-"`
	Foreground  bool           `json:"foreground"`
	Audio       bool           `json:"audio"`
}

// Store is the loop-owned map from pid to its assignment plus boost
// state.
type Store struct {
	entries map[int]*entry

	foregroundProfile *config.Profile
	audioProfile      *config.Profile
}

// New builds an empty Store. foreground and audio may be nil when the
// corresponding boost is not configured; disabled components are
// simply never consulted.
func New(foreground, audio *config.Profile) *Store {
	return &Store{
		entries:           make(map[int]*entry),
		foregroundProfile: foreground,
		audioProfile:      audio,
	}
}

// Record stores a first-time (or replacing) assignment for pid. A
// second exec event for a reused pid simply replaces the prior entry.
func (s *Store) Record(pid int, exePath, profileName string, profile config.Profile) {
	s.entries[pid] = &entry{
		Pid:         pid,
		ExePath:     exePath,
		ProfileName: profileName,
		Assigned:    profile,
	}
}

// Lookup returns the raw entry for pid, if tracked.
func (s *Store) Lookup(pid int) (exePath, profileName string, ok bool) {
	e, found := s.entries[pid]
	if !found {
		return "", "", false
	}
	return e.ExePath, e.ProfileName, true
}

// Tracked reports whether pid currently has a store entry.
func (s *Store) Tracked(pid int) bool {
	_, ok := s.entries[pid]
	return ok
}

// SetForeground marks or clears the foreground-boost flag for pid.
// It is a no-op if pid is not tracked (a boosted pid must first have
// been recorded by an exec event or sweep).
func (s *Store) SetForeground(pid int, on bool) {
	if e, ok := s.entries[pid]; ok {
		e.Foreground = on
	}
}

// SetAudio marks or clears the audio-boost flag for pid.
func (s *Store) SetAudio(pid int, on bool) {
	if e, ok := s.entries[pid]; ok {
		e.Audio = on
	}
}

// EffectiveProfile computes the profile that should currently be
// applied to pid: foreground replaces the base wholesale, audio
// replaces the base wholesale, foreground wins when both are set, and
// they never merge field-by-field.
func (s *Store) EffectiveProfile(pid int) (config.Profile, bool) {
	e, ok := s.entries[pid]
	if !ok {
		return config.Profile{}, false
	}
	if e.Foreground && s.foregroundProfile != nil {
		return *s.foregroundProfile, true
	}
	if e.Audio && s.audioProfile != nil {
		return *s.audioProfile, true
	}
	return e.Assigned, true
}

// Forget removes pid from the store, called when a pid is known gone.
func (s *Store) Forget(pid int) {
	delete(s.entries, pid)
}

// TrackedPids returns a snapshot of every pid currently tracked, used by
// the periodic sweep to find entries whose process no longer exists.
func (s *Store) TrackedPids() []int {
	pids := make([]int, 0, len(s.entries))
	for pid := range s.entries {
		pids = append(pids, pid)
	}
	return pids
}

// snapshotEntry is the JSON shape of one dumped record; it is never read
// back by this process; debug dump is a point-in-time introspection aid
// only, not a persistence mechanism (no state survives a restart).
type snapshotEntry struct {
	Pid         int    `json:"pid"`
	ExePath     string `json:"exe_path"`
	ProfileName string `json:"profile_name"`
	Foreground  bool   `json:"foreground"`
	Audio       bool   `json:"audio"`
}

// Snapshot returns the current store contents as JSON, for the debug
// dump written by DumpToFile. It never round-trips back into Record.
func (s *Store) Snapshot() ([]byte, error) {
	out := make([]snapshotEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, snapshotEntry{
			Pid:         e.Pid,
			ExePath:     e.ExePath,
			ProfileName: e.ProfileName,
			Foreground:  e.Foreground,
			Audio:       e.Audio,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, scherrors.Wrap(err, scherrors.ErrInternal, "snapshot")
	}
	return data, nil
}

// DumpToFile atomically writes the snapshot to path, using the
// write-temp-then-rename pattern so a concurrent reader never observes
// a partial file.
func (s *Store) DumpToFile(path string) error {
	data, err := s.Snapshot()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return scherrors.Wrap(err, scherrors.ErrInternal, "dump")
	}
	if err := os.Rename(tmp, path); err != nil {
		return scherrors.Wrap(err, scherrors.ErrInternal, "dump")
	}
	return nil
}

// StateFilePath is the conventional debug-dump location.
func StateFilePath(runtimeDir string) string {
	return filepath.Join(runtimeDir, "scheduler-state.json")
}
