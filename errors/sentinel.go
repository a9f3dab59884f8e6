// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Configuration errors.
var (
	// ErrMissingConfig indicates neither the system nor distribution config path exists.
	ErrMissingConfig = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "no configuration file found",
	}

	// ErrInvalidProfile indicates a profile definition is malformed.
	ErrInvalidProfile = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "invalid profile definition",
	}

	// ErrUnknownParentProfile indicates a profile names a parent that was not
	// seen earlier in load order.
	ErrUnknownParentProfile = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "parent profile not yet defined",
	}

	// ErrInvalidNice indicates a nice value outside [-20, 19].
	ErrInvalidNice = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "nice value out of range [-20, 19]",
	}

	// ErrInvalidRTPriority indicates a FIFO/RR priority outside [1, 99].
	ErrInvalidRTPriority = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "realtime priority out of range [1, 99]",
	}

	// ErrInvalidIOLevel indicates an I/O class level outside [0, 7].
	ErrInvalidIOLevel = &SchedulerError{
		Kind:   ErrInvalidConfig,
		Detail: "io priority level out of range [0, 7]",
	}
)

// Rule errors.
var (
	// ErrEmptyExePath indicates an Exe selector with an empty path.
	ErrEmptyExePath = &SchedulerError{
		Kind:   ErrRule,
		Detail: "exe selector requires an absolute path",
	}

	// ErrRelativeExePath indicates an Exe selector path is not absolute.
	ErrRelativeExePath = &SchedulerError{
		Kind:   ErrRule,
		Detail: "exe selector path must be absolute",
	}

	// ErrUnknownProfileName indicates a rule names a profile absent from the table.
	ErrUnknownProfileName = &SchedulerError{
		Kind:   ErrRule,
		Detail: "rule references unknown profile",
	}

	// ErrInvalidGlob indicates a cgroup/parent glob failed to compile.
	ErrInvalidGlob = &SchedulerError{
		Kind:   ErrRule,
		Detail: "invalid glob pattern",
	}
)

// Process / introspection errors.
var (
	// ErrProcessNotFound indicates the pid does not exist in /proc.
	ErrProcessNotFound = &SchedulerError{
		Kind:   ErrProcessGone,
		Detail: "process not found",
	}

	// ErrProcessRace indicates the process vanished between two reads.
	ErrProcessRace = &SchedulerError{
		Kind:   ErrProcessGone,
		Detail: "process exited during introspection",
	}
)

// Apply errors.
var (
	// ErrSetPriority indicates the nice syscall failed.
	ErrSetPriority = &SchedulerError{
		Kind:   ErrApply,
		Detail: "failed to set nice value",
	}

	// ErrSetScheduler indicates the scheduling-policy syscall failed.
	ErrSetScheduler = &SchedulerError{
		Kind:   ErrApply,
		Detail: "failed to set scheduling policy",
	}

	// ErrSetIOPriority indicates the ioprio_set syscall failed.
	ErrSetIOPriority = &SchedulerError{
		Kind:   ErrApply,
		Detail: "failed to set io priority",
	}

	// ErrKernelThread indicates the pid is a kernel thread and cannot be tuned.
	ErrKernelThread = &SchedulerError{
		Kind:   ErrPermission,
		Detail: "cannot apply attributes to a kernel thread",
	}
)

// CFS tuner errors.
var (
	// ErrTunableMissing indicates a sysctl-like path does not exist on this kernel.
	ErrTunableMissing = &SchedulerError{
		Kind:   ErrApply,
		Detail: "kernel tunable not present on this kernel",
	}
)

// Control bus errors.
var (
	// ErrBusUnavailable indicates the session/system bus could not be reached.
	ErrBusUnavailable = &SchedulerError{
		Kind:   ErrBus,
		Detail: "control bus unavailable",
	}

	// ErrBusNameTaken indicates another instance already owns the well-known name.
	ErrBusNameTaken = &SchedulerError{
		Kind:   ErrBus,
		Detail: "bus name already owned",
	}
)
