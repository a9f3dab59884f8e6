// Package rules indexes the assignment rules and exceptions from a loaded
// configuration for fast matching against a process. Lookup order is
// fixed: exceptions first, then exact exe match, then exact name match,
// then wildcard rules in declaration order.
package rules

import (
	"scheduler-go/config"
	scherrors "scheduler-go/errors"

	"github.com/gobwas/glob"
)

// compiledCondition holds the glob.Glob compiled from a config.GlobCondition.
type compiledCondition struct {
	cgroup       glob.Glob
	cgroupNegate bool
	parent       glob.Glob
	parentNegate bool
}

// match reports whether cgroupPath and parentComm satisfy every
// sub-condition that was configured. An unset sub-condition always
// holds.
func (c *compiledCondition) match(cgroupPath, parentComm string) bool {
	if c == nil {
		return true
	}
	if c.cgroup != nil {
		hit := c.cgroup.Match(cgroupPath)
		if hit == c.cgroupNegate {
			return false
		}
	}
	if c.parent != nil {
		hit := c.parent.Match(parentComm)
		if hit == c.parentNegate {
			return false
		}
	}
	return true
}

func compileCondition(c *config.Condition) (*compiledCondition, error) {
	if c == nil {
		return nil, nil
	}
	out := &compiledCondition{}
	if c.Cgroup.Set() {
		g, err := glob.Compile(c.Cgroup.Pattern)
		if err != nil {
			return nil, scherrors.WrapWithDetail(scherrors.ErrInvalidGlob, scherrors.ErrRule, "compile", c.Cgroup.Pattern)
		}
		out.cgroup = g
		out.cgroupNegate = c.Cgroup.Negate
	}
	if c.Parent.Set() {
		g, err := glob.Compile(c.Parent.Pattern)
		if err != nil {
			return nil, scherrors.WrapWithDetail(scherrors.ErrInvalidGlob, scherrors.ErrRule, "compile", c.Parent.Pattern)
		}
		out.parent = g
		out.parentNegate = c.Parent.Negate
	}
	return out, nil
}

// exceptionEntry and assignmentEntry pair a compiled condition with the
// rule it came from, since Condition in config is uncompiled.
type exceptionEntry struct {
	rule      config.Exception
	condition *compiledCondition
}

type assignmentEntry struct {
	rule      config.AssignmentRule
	condition *compiledCondition
}

// Set is the compiled, indexed form of a configuration's rules.
type Set struct {
	exceptionsByExe  map[string][]exceptionEntry
	exceptionsByName map[string][]exceptionEntry
	exceptionsWild   []exceptionEntry

	assignByExe  map[string][]assignmentEntry
	assignByName map[string][]assignmentEntry
	assignWild   []assignmentEntry
}

// Compile builds a Set from the rules and exceptions of a loaded Config.
func Compile(assignments []config.AssignmentRule, exceptions []config.Exception) (*Set, error) {
	s := &Set{
		exceptionsByExe:  make(map[string][]exceptionEntry),
		exceptionsByName: make(map[string][]exceptionEntry),
		assignByExe:      make(map[string][]assignmentEntry),
		assignByName:     make(map[string][]assignmentEntry),
	}

	for _, e := range exceptions {
		cc, err := compileCondition(e.Condition)
		if err != nil {
			return nil, err
		}
		entry := exceptionEntry{rule: e, condition: cc}
		switch e.Selector.Kind {
		case config.SelectExe:
			s.exceptionsByExe[e.Selector.Value] = append(s.exceptionsByExe[e.Selector.Value], entry)
		case config.SelectName:
			s.exceptionsByName[e.Selector.Value] = append(s.exceptionsByName[e.Selector.Value], entry)
		default:
			s.exceptionsWild = append(s.exceptionsWild, entry)
		}
	}

	for _, a := range assignments {
		cc, err := compileCondition(a.Condition)
		if err != nil {
			return nil, err
		}
		entry := assignmentEntry{rule: a, condition: cc}
		switch a.Selector.Kind {
		case config.SelectExe:
			s.assignByExe[a.Selector.Value] = append(s.assignByExe[a.Selector.Value], entry)
		case config.SelectName:
			s.assignByName[a.Selector.Value] = append(s.assignByName[a.Selector.Value], entry)
		default:
			s.assignWild = append(s.assignWild, entry)
		}
	}

	return s, nil
}

// Subject is the minimal set of fields a rule can match against; callers
// adapt procinfo.ProcInfo into this shape so this package does not
// import procinfo.
type Subject struct {
	ExePath    string
	Comm       string
	ParentComm string
	CgroupPath string
}

// Decision is the verdict of matching a Subject against the Set.
type Decision struct {
	Excepted    bool
	ProfileName string // empty when no assignment matched and not excepted
}

// Match walks exceptions, then exe, then name, then wildcard rules, in
// that fixed order, returning on the first hit.
func (s *Set) Match(subj Subject) Decision {
	if s.matchExceptionList(s.exceptionsByExe[subj.ExePath], subj) {
		return Decision{Excepted: true}
	}
	if s.matchExceptionList(s.exceptionsByName[subj.Comm], subj) {
		return Decision{Excepted: true}
	}
	if s.matchExceptionList(s.exceptionsWild, subj) {
		return Decision{Excepted: true}
	}

	if name, ok := matchAssignmentList(s.assignByExe[subj.ExePath], subj); ok {
		return Decision{ProfileName: name}
	}
	if name, ok := matchAssignmentList(s.assignByName[subj.Comm], subj); ok {
		return Decision{ProfileName: name}
	}
	if name, ok := matchAssignmentList(s.assignWild, subj); ok {
		return Decision{ProfileName: name}
	}

	return Decision{}
}

func (s *Set) matchExceptionList(entries []exceptionEntry, subj Subject) bool {
	for _, e := range entries {
		if e.condition.match(subj.CgroupPath, subj.ParentComm) {
			return true
		}
	}
	return false
}

func matchAssignmentList(entries []assignmentEntry, subj Subject) (string, bool) {
	for _, e := range entries {
		if e.condition.match(subj.CgroupPath, subj.ParentComm) {
			return e.rule.ProfileName, true
		}
	}
	return "", false
}
