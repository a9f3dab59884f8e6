// Package config holds the declarative scheduling configuration: profiles,
// assignment rules, exceptions, and CFS tuning parameters.
//
// Parsing of the on-disk grammar is realized here with gopkg.in/yaml.v3;
// everything downstream of Load consumes the flat, fully-resolved structs
// defined in this file.
package config

import (
	scherrors "scheduler-go/errors"
)

// SchedPolicy is a kernel scheduling policy variant.
type SchedPolicy string

const (
	SchedOther SchedPolicy = "other"
	SchedBatch SchedPolicy = "batch"
	SchedIdle  SchedPolicy = "idle"
	SchedFifo  SchedPolicy = "fifo"
	SchedRR    SchedPolicy = "rr"
)

// IsRealtime reports whether the policy requires a priority in [1, 99].
func (p SchedPolicy) IsRealtime() bool {
	return p == SchedFifo || p == SchedRR
}

// IOClass is an I/O priority class variant.
type IOClass string

const (
	IOIdle       IOClass = "idle"
	IOBestEffort IOClass = "best-effort"
	IORealtime   IOClass = "realtime"
)

// HasLevel reports whether the class takes a priority level in [0, 7].
func (c IOClass) HasLevel() bool {
	return c == IOBestEffort || c == IORealtime
}

// SchedAttr is the (policy, priority) pair for the kernel scheduler.
type SchedAttr struct {
	Policy   SchedPolicy `yaml:"policy"`
	Priority int         `yaml:"priority"`
}

// IOAttr is the (class, level) pair for the I/O priority scheduler.
type IOAttr struct {
	Class IOClass `yaml:"class"`
	Level int     `yaml:"level"`
}

// Profile is a named attribute bundle. Unset fields mean "do not touch".
type Profile struct {
	Name   string     `yaml:"-"`
	Parent string     `yaml:"parent,omitempty"`
	Nice   *int       `yaml:"nice,omitempty"`
	Sched  *SchedAttr `yaml:"sched,omitempty"`
	IO     *IOAttr    `yaml:"io,omitempty"`
}

// Validate enforces the invariants from the data model: nice in [-20,19],
// FIFO/RR priority in [1,99] (zero otherwise), I/O level in [0,7] (zero
// otherwise).
func (p *Profile) Validate() error {
	if p.Nice != nil && (*p.Nice < -20 || *p.Nice > 19) {
		return scherrors.WrapWithDetail(scherrors.ErrInvalidNice, scherrors.ErrInvalidConfig, "validate", p.Name)
	}
	if p.Sched != nil {
		if p.Sched.Policy.IsRealtime() {
			if p.Sched.Priority < 1 || p.Sched.Priority > 99 {
				return scherrors.WrapWithDetail(scherrors.ErrInvalidRTPriority, scherrors.ErrInvalidConfig, "validate", p.Name)
			}
		} else if p.Sched.Priority != 0 {
			return scherrors.WrapWithDetail(scherrors.ErrInvalidConfig, scherrors.ErrInvalidConfig, "validate",
				p.Name+": priority must be zero for non-realtime policy")
		}
	}
	if p.IO != nil {
		if p.IO.Class.HasLevel() {
			if p.IO.Level < 0 || p.IO.Level > 7 {
				return scherrors.WrapWithDetail(scherrors.ErrInvalidIOLevel, scherrors.ErrInvalidConfig, "validate", p.Name)
			}
		} else if p.IO.Level != 0 {
			return scherrors.WrapWithDetail(scherrors.ErrInvalidConfig, scherrors.ErrInvalidConfig, "validate",
				p.Name+": level must be zero for idle class")
		}
	}
	return nil
}

// mergeFrom starts p from the parent's fields and overrides only those p
// itself respecifies. Called once at load time; after this no runtime
// inheritance chasing is needed.
func (p *Profile) mergeFrom(parent Profile) {
	if p.Nice == nil {
		p.Nice = parent.Nice
	}
	if p.Sched == nil {
		p.Sched = parent.Sched
	}
	if p.IO == nil {
		p.IO = parent.IO
	}
}

// Clone returns a deep copy so callers can layer overrides without
// mutating the table.
func (p Profile) Clone() Profile {
	out := p
	if p.Nice != nil {
		n := *p.Nice
		out.Nice = &n
	}
	if p.Sched != nil {
		s := *p.Sched
		out.Sched = &s
	}
	if p.IO != nil {
		io := *p.IO
		out.IO = &io
	}
	return out
}

// ProfileTable maps profile name to fully-resolved Profile.
type ProfileTable map[string]Profile

// resolveInheritance expands profiles named in load order, where a child
// naming a parent seen earlier inherits any field it leaves unset.
func resolveInheritance(order []string, raw map[string]Profile) (ProfileTable, error) {
	resolved := make(ProfileTable, len(raw))
	for _, name := range order {
		p := raw[name]
		p.Name = name
		if p.Parent != "" {
			parent, ok := resolved[p.Parent]
			if !ok {
				return nil, scherrors.WrapWithDetail(scherrors.ErrUnknownParentProfile, scherrors.ErrInvalidConfig, "load", name)
			}
			p.mergeFrom(parent)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		resolved[name] = p
	}
	return resolved, nil
}
