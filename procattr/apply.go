// Package procattr applies a resolved scheduling profile to a pid using
// raw Linux syscalls. Application is best-effort per dimension: a
// failure to set one attribute (e.g. a realtime priority without
// CAP_SYS_NICE) does not prevent the others from being tried.
package procattr

import (
	"unsafe"

	"scheduler-go/config"
	scherrors "scheduler-go/errors"

	"golang.org/x/sys/unix"
)

// schedParam mirrors struct sched_param from <sched.h>; only sched_priority
// is used by any policy this daemon supports.
type schedParam struct {
	Priority int32
}

// policyNumber maps a config.SchedPolicy to the kernel's SCHED_* constant.
func policyNumber(p config.SchedPolicy) int {
	switch p {
	case config.SchedOther:
		return 0 // SCHED_OTHER
	case config.SchedFifo:
		return 1 // SCHED_FIFO
	case config.SchedRR:
		return 2 // SCHED_RR
	case config.SchedBatch:
		return 3 // SCHED_BATCH
	case config.SchedIdle:
		return 5 // SCHED_IDLE
	default:
		return 0
	}
}

// ioprio_set's "who" argument selects a single process by pid.
const ioprioWhoProcess = 1

// ioprio class values, shifted into the upper bits of the combined word
// per the ioprio_set(2) ABI.
const ioprioClassShift = 13

func ioprioClassNumber(c config.IOClass) int {
	switch c {
	case config.IORealtime:
		return 1
	case config.IOBestEffort:
		return 2
	case config.IOIdle:
		return 3
	default:
		return 2
	}
}

// Result records which of the three dimensions were actually changed,
// so callers (store/eventloop) can log partial application without
// treating it as total failure.
type Result struct {
	Pid            int
	NiceApplied    bool
	SchedApplied   bool
	IOPrioApplied  bool
	Errs           []error
}

// Ok reports whether every dimension the profile specified was applied.
func (r Result) Ok() bool {
	return len(r.Errs) == 0
}

// Apply pushes every attribute set in profile onto pid. Unset fields in
// profile are left untouched on the target process.
func Apply(pid int, profile config.Profile) Result {
	res := Result{Pid: pid}

	if profile.Nice != nil {
		if err := setNice(pid, *profile.Nice); err != nil {
			res.Errs = append(res.Errs, scherrors.WrapWithPid(err, scherrors.ErrApply, "set-nice", pid))
		} else {
			res.NiceApplied = true
		}
	}

	if profile.Sched != nil {
		if err := setScheduler(pid, *profile.Sched); err != nil {
			res.Errs = append(res.Errs, scherrors.WrapWithPid(err, scherrors.ErrApply, "set-scheduler", pid))
		} else {
			res.SchedApplied = true
		}
	}

	if profile.IO != nil {
		if err := setIOPriority(pid, *profile.IO); err != nil {
			res.Errs = append(res.Errs, scherrors.WrapWithPid(err, scherrors.ErrApply, "set-ioprio", pid))
		} else {
			res.IOPrioApplied = true
		}
	}

	return res
}

func setNice(pid, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}

// setScheduler calls sched_setscheduler(2) directly: golang.org/x/sys/unix
// does not wrap it, so this follows the raw-Syscall pattern used elsewhere
// in this codebase for syscalls without a package-level wrapper.
func setScheduler(pid int, attr config.SchedAttr) error {
	param := schedParam{Priority: int32(attr.Priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER,
		uintptr(pid), uintptr(policyNumber(attr.Policy)), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errno
	}
	return nil
}

// setIOPriority calls ioprio_set(2) for IOPRIO_WHO_PROCESS. Like
// sched_setscheduler, this syscall has no unix package wrapper.
func setIOPriority(pid int, attr config.IOAttr) error {
	ioprio := (ioprioClassNumber(attr.Class) << ioprioClassShift) | (attr.Level & 0x1fff)
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET,
		uintptr(ioprioWhoProcess), uintptr(pid), uintptr(ioprio))
	if errno != 0 {
		return errno
	}
	return nil
}

// IsKernelThread reports whether pid has no resolvable exe path, the
// usual signal for a kernel thread (kthreadd children), which cannot
// have scheduling attributes changed the same way as a user process.
func IsKernelThread(exePath string) bool {
	return exePath == ""
}
