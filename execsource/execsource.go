// Package execsource runs the external exec-event tracer and parses its
// output into (pid, parent_pid, exe) tuples. The tracer binary path is
// supplied by the caller (the run command reads it from the
// SCHEDULER_EXEC_TRACER environment variable when the daemon starts; no
// path is fixed at build time); this package only owns parsing and the
// subprocess lifecycle.
package execsource

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"scheduler-go/logging"
)

// Event is one parsed exec notification.
type Event struct {
	Pid       int
	ParentPid int
	Exe       string
}

// ParseLine parses a single tracer output line of the form
// "<pid> <parent_pid> <exe_path_or_basename>".
func ParseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Event{}, fmt.Errorf("execsource: malformed line %q", line)
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return Event{}, fmt.Errorf("execsource: bad pid in %q: %w", line, err)
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("execsource: bad parent pid in %q: %w", line, err)
	}
	return Event{Pid: pid, ParentPid: ppid, Exe: fields[2]}, nil
}

// Run starts tracerPath and invokes onEvent for each successfully parsed
// line until ctx is cancelled or the tracer's stdout reaches EOF. A
// stream EOF is treated as a degraded-capability condition, not fatal:
// the periodic sweep remains the source of truth for tracking.
func Run(ctx context.Context, tracerPath string, onEvent func(Event)) error {
	cmd := exec.CommandContext(ctx, tracerPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		ev, err := ParseLine(scanner.Text())
		if err != nil {
			logging.Default().Warn("discarding malformed exec tracer line", "error", err)
			continue
		}
		onEvent(ev)
	}

	if err := cmd.Wait(); err != nil && ctx.Err() == nil {
		logging.Default().Warn("exec event source exited; relying on periodic sweep", "error", err)
	}
	return nil
}
