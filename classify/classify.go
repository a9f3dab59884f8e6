// Package classify turns a process's metadata and the compiled rule set
// into a single scheduling decision: which profile (if any) applies.
package classify

import (
	"scheduler-go/config"
	"scheduler-go/procinfo"
	"scheduler-go/rules"
)

// Outcome is the resolved classification for one process.
type Outcome struct {
	Excepted bool
	Profile  *config.Profile // nil when excepted or nothing matched
}

// Classifier binds a rule set to a profile table so a decision always
// comes back with its profile fully resolved, not just a name.
type Classifier struct {
	ruleSet  *rules.Set
	profiles config.ProfileTable
}

// New builds a Classifier from a compiled rule set and the profile table
// it references.
func New(ruleSet *rules.Set, profiles config.ProfileTable) *Classifier {
	return &Classifier{ruleSet: ruleSet, profiles: profiles}
}

// Classify maps a process snapshot to an Outcome. A rule naming a
// profile absent from the table (which Load already validates against,
// but a caller could hand-build a Classifier without that check) yields
// a no-op outcome rather than a panic.
func (c *Classifier) Classify(info *procinfo.ProcInfo) Outcome {
	subj := rules.Subject{
		ExePath:    info.ExePath,
		Comm:       info.Comm,
		ParentComm: info.ParentComm,
		CgroupPath: info.CgroupPath,
	}
	decision := c.ruleSet.Match(subj)
	if decision.Excepted {
		return Outcome{Excepted: true}
	}
	if decision.ProfileName == "" {
		return Outcome{}
	}
	profile, ok := c.profiles[decision.ProfileName]
	if !ok {
		return Outcome{}
	}
	return Outcome{Profile: &profile}
}
