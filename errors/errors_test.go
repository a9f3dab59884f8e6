package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrNotFound, "not found"},
		{ErrAlreadyExists, "already exists"},
		{ErrInvalidState, "invalid state"},
		{ErrInvalidConfig, "invalid config"},
		{ErrPermission, "permission denied"},
		{ErrProcessGone, "process gone"},
		{ErrApply, "apply error"},
		{ErrRule, "rule error"},
		{ErrBus, "bus error"},
		{ErrInternal, "internal error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSchedulerError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *SchedulerError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &SchedulerError{
				Op:     "apply",
				Pid:    4242,
				Kind:   ErrApply,
				Detail: "ioprio_set failed",
				Err:    fmt.Errorf("operation not permitted"),
			},
			expected: "pid 4242: apply: ioprio_set failed: operation not permitted",
		},
		{
			name: "without pid",
			err: &SchedulerError{
				Op:     "load",
				Kind:   ErrInvalidConfig,
				Detail: "duplicate profile name",
			},
			expected: "load: duplicate profile name",
		},
		{
			name: "kind only",
			err: &SchedulerError{
				Kind: ErrPermission,
			},
			expected: "permission denied",
		},
		{
			name: "with underlying error",
			err: &SchedulerError{
				Op:   "classify",
				Kind: ErrRule,
				Err:  fmt.Errorf("bad glob"),
			},
			expected: "classify: rule error: bad glob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("SchedulerError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSchedulerError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &SchedulerError{
		Op:   "test",
		Kind: ErrInternal,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	var nilErr *SchedulerError
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestSchedulerError_Is(t *testing.T) {
	err1 := &SchedulerError{Kind: ErrNotFound, Op: "test1"}
	err2 := &SchedulerError{Kind: ErrNotFound, Op: "test2"}
	err3 := &SchedulerError{Kind: ErrPermission, Op: "test3"}

	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	var nilErr *SchedulerError
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrInvalidConfig, "validate", "profile table is empty")

	if err.Kind != ErrInvalidConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrInvalidConfig)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "profile table is empty" {
		t.Errorf("Detail = %q, want %q", err.Detail, "profile table is empty")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrPermission, "set nice")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrPermission {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrPermission)
	}
	if err.Op != "set nice" {
		t.Errorf("Op = %q, want %q", err.Op, "set nice")
	}
}

func TestWrapWithPid(t *testing.T) {
	underlying := fmt.Errorf("not found")
	err := WrapWithPid(underlying, ErrProcessGone, "introspect", 999)

	if err.Pid != 999 {
		t.Errorf("Pid = %d, want %d", err.Pid, 999)
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("syscall failed")
	err := WrapWithDetail(underlying, ErrApply, "apply", "unsupported policy")

	if err.Detail != "unsupported policy" {
		t.Errorf("Detail = %q, want %q", err.Detail, "unsupported policy")
	}
}

func TestIsKind(t *testing.T) {
	err := &SchedulerError{Kind: ErrNotFound}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrNotFound) {
		t.Error("IsKind(err, ErrNotFound) should be true")
	}
	if !IsKind(wrapped, ErrNotFound) {
		t.Error("IsKind(wrapped, ErrNotFound) should be true")
	}
	if IsKind(err, ErrPermission) {
		t.Error("IsKind(err, ErrPermission) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrNotFound) {
		t.Error("IsKind(plain error, ErrNotFound) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &SchedulerError{Kind: ErrApply}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrApply {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrApply)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrApply {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrApply)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *SchedulerError
		kind ErrorKind
	}{
		{"ErrMissingConfig", ErrMissingConfig, ErrInvalidConfig},
		{"ErrInvalidProfile", ErrInvalidProfile, ErrInvalidConfig},
		{"ErrUnknownParentProfile", ErrUnknownParentProfile, ErrInvalidConfig},
		{"ErrProcessNotFound", ErrProcessNotFound, ErrProcessGone},
		{"ErrSetPriority", ErrSetPriority, ErrApply},
		{"ErrSetScheduler", ErrSetScheduler, ErrApply},
		{"ErrSetIOPriority", ErrSetIOPriority, ErrApply},
		{"ErrKernelThread", ErrKernelThread, ErrPermission},
		{"ErrTunableMissing", ErrTunableMissing, ErrApply},
		{"ErrBusUnavailable", ErrBusUnavailable, ErrBus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("process not found")
	err1 := Wrap(underlying, ErrProcessGone, "introspect")
	err2 := fmt.Errorf("classify failed: %w", err1)

	if !errors.Is(err2, ErrProcessNotFound) {
		t.Error("errors.Is should find ErrProcessNotFound in chain")
	}

	var serr *SchedulerError
	if !errors.As(err2, &serr) {
		t.Error("errors.As should find SchedulerError in chain")
	}
	if serr.Op != "introspect" {
		t.Errorf("serr.Op = %q, want %q", serr.Op, "introspect")
	}

	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
