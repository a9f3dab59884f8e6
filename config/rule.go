package config

import (
	"strings"

	scherrors "scheduler-go/errors"
)

// SelectorKind discriminates AssignmentRule.Selector variants.
type SelectorKind int

const (
	// SelectExe matches an absolute executable path.
	SelectExe SelectorKind = iota
	// SelectName matches the kernel's 15-char comm.
	SelectName
	// SelectWildcard matches every process, subject to Condition.
	SelectWildcard
)

// Selector is the match target of a rule.
type Selector struct {
	Kind  SelectorKind
	Value string // absolute path for SelectExe, comm for SelectName, empty for SelectWildcard
}

// GlobCondition is one optional, possibly-negated glob sub-condition.
type GlobCondition struct {
	Pattern string
	Negate  bool
}

// Set reports whether the sub-condition was configured at all.
func (g *GlobCondition) Set() bool {
	return g != nil && g.Pattern != ""
}

// Condition is the conjunctive set of optional sub-conditions attached to a rule.
type Condition struct {
	Cgroup *GlobCondition
	Parent *GlobCondition
}

// AssignmentRule is (selector, profile name, optional condition).
type AssignmentRule struct {
	Selector    Selector
	ProfileName string
	Condition   *Condition
}

// Exception has the identical shape but yields "never touch this pid".
type Exception struct {
	Selector  Selector
	Condition *Condition
}

// rawRule is the YAML wire shape for one assignment or exception entry.
type rawRule struct {
	Exe      string         `yaml:"exe,omitempty"`
	Name     string         `yaml:"name,omitempty"`
	Wildcard bool           `yaml:"wildcard,omitempty"`
	Profile  string         `yaml:"profile,omitempty"`
	Cgroup   string         `yaml:"cgroup,omitempty"`
	Parent   string         `yaml:"parent,omitempty"`
}

func parseGlobField(raw string) *GlobCondition {
	if raw == "" {
		return nil
	}
	negate := strings.HasPrefix(raw, "!")
	pattern := strings.TrimPrefix(raw, "!")
	return &GlobCondition{Pattern: pattern, Negate: negate}
}

func (r rawRule) condition() *Condition {
	cg := parseGlobField(r.Cgroup)
	pc := parseGlobField(r.Parent)
	if cg == nil && pc == nil {
		return nil
	}
	return &Condition{Cgroup: cg, Parent: pc}
}

func (r rawRule) selector() (Selector, error) {
	switch {
	case r.Exe != "":
		if !strings.HasPrefix(r.Exe, "/") {
			return Selector{}, scherrors.WrapWithDetail(scherrors.ErrRelativeExePath, scherrors.ErrRule, "parse", r.Exe)
		}
		return Selector{Kind: SelectExe, Value: r.Exe}, nil
	case r.Name != "":
		return Selector{Kind: SelectName, Value: r.Name}, nil
	case r.Wildcard:
		return Selector{Kind: SelectWildcard}, nil
	default:
		return Selector{}, scherrors.New(scherrors.ErrRule, "parse", "rule has no selector (exe, name, or wildcard)")
	}
}

func (r rawRule) toAssignment() (AssignmentRule, error) {
	sel, err := r.selector()
	if err != nil {
		return AssignmentRule{}, err
	}
	if r.Profile == "" {
		return AssignmentRule{}, scherrors.New(scherrors.ErrRule, "parse", "assignment rule requires a profile")
	}
	return AssignmentRule{Selector: sel, ProfileName: r.Profile, Condition: r.condition()}, nil
}

func (r rawRule) toException() (Exception, error) {
	sel, err := r.selector()
	if err != nil {
		return Exception{}, err
	}
	return Exception{Selector: sel, Condition: r.condition()}, nil
}
