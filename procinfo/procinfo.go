// Package procinfo reads process metadata out of /proc. Every read is
// best-effort: a process can exit between directory listing and file
// read, so callers treat a vanished pid as ordinary control flow, not
// a fatal error.
package procinfo

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	scherrors "scheduler-go/errors"
)

// ProcInfo is the metadata snapshot the classifier matches rules against.
type ProcInfo struct {
	Pid        int
	ExePath    string // resolved target of /proc/<pid>/exe, may be empty if unreadable
	Cmdline    []string
	Comm       string // kernel's 15-byte-truncated process name
	ParentPid  int
	ParentComm string
	CgroupPath string
}

// Introspect reads everything procinfo knows about pid. A process that
// exits mid-read yields ErrProcessGone rather than a generic os error,
// so callers can distinguish "went away" from "permission denied" etc.
func Introspect(pid int) (*ProcInfo, error) {
	base := procPath(pid)
	if _, err := os.Stat(base); err != nil {
		return nil, scherrors.WrapWithPid(scherrors.ErrProcessNotFound, scherrors.ErrProcessGone, "introspect", pid)
	}

	comm, err := readComm(pid)
	if err != nil {
		return nil, scherrors.WrapWithPid(err, scherrors.ErrProcessGone, "introspect", pid)
	}

	exePath, _ := os.Readlink(base + "/exe") // permission denied is common and non-fatal

	cmdline, _ := readCmdline(pid)

	ppid, _ := readParentPid(pid)
	parentComm := ""
	if ppid > 0 {
		parentComm, _ = readComm(ppid)
	}

	cgroup, _ := readCgroup(pid)

	return &ProcInfo{
		Pid:        pid,
		ExePath:    exePath,
		Cmdline:    cmdline,
		Comm:       comm,
		ParentPid:  ppid,
		ParentComm: parentComm,
		CgroupPath: cgroup,
	}, nil
}

func procPath(pid int) string {
	return "/proc/" + strconv.Itoa(pid)
}

func readComm(pid int) (string, error) {
	data, err := os.ReadFile(procPath(pid) + "/comm")
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func readCmdline(pid int) ([]string, error) {
	data, err := os.ReadFile(procPath(pid) + "/cmdline")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(data), "\x00")
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// readParentPid parses field 4 of /proc/<pid>/stat. The comm field (2nd,
// parenthesized) may itself contain spaces or parens, so scanning starts
// after the last ')' rather than splitting naively on whitespace.
func readParentPid(pid int) (int, error) {
	data, err := os.ReadFile(procPath(pid) + "/stat")
	if err != nil {
		return 0, err
	}
	line := string(data)
	close := strings.LastIndexByte(line, ')')
	if close < 0 || close+2 >= len(line) {
		return 0, scherrors.New(scherrors.ErrInternal, "parse-stat", "malformed stat line")
	}
	fields := strings.Fields(line[close+2:])
	// fields[0] = state, fields[1] = ppid
	if len(fields) < 2 {
		return 0, scherrors.New(scherrors.ErrInternal, "parse-stat", "missing ppid field")
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, err
	}
	return ppid, nil
}

func readCgroup(pid int) (string, error) {
	f, err := os.Open(procPath(pid) + "/cgroup")
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var fallback string
	for scanner.Scan() {
		line := scanner.Text()
		// "0::/path" on cgroup v2, "N:controller:/path" on v1.
		idx := strings.LastIndexByte(line, ':')
		if idx < 0 {
			continue
		}
		path := line[idx+1:]
		if strings.HasPrefix(line, "0::") {
			return path, nil
		}
		if fallback == "" {
			fallback = path
		}
	}
	return fallback, nil
}

// Descendants returns the set of pids reachable from root (exclusive)
// by following child links in a single fresh snapshot of the process
// tree, per the "reread {pid -> parent_pid} each call" design: a
// visited-set bounds the walk even if /proc races produce a corrupt
// parent chain.
func Descendants(root int) (map[int]struct{}, error) {
	parents, err := snapshotParents()
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int, len(parents))
	for pid, ppid := range parents {
		children[ppid] = append(children[ppid], pid)
	}

	visited := make(map[int]struct{})
	queue := append([]int{}, children[root]...)
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if _, seen := visited[pid]; seen {
			continue
		}
		visited[pid] = struct{}{}
		queue = append(queue, children[pid]...)
	}
	return visited, nil
}

// snapshotParents builds a {pid -> parent_pid} map from every numeric
// entry under /proc, read once so the whole tree is consistent against
// a single point in time.
func snapshotParents() (map[int]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, scherrors.Wrap(err, scherrors.ErrInternal, "snapshot-tree")
	}
	parents := make(map[int]int, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid, err := readParentPid(pid)
		if err != nil {
			continue // raced with exit; just absent from the snapshot
		}
		parents[pid] = ppid
	}
	return parents, nil
}
