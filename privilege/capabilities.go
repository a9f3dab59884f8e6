// Package privilege inspects the Linux capabilities this process holds.
//
// The scheduling daemon needs CAP_SYS_NICE (renice/policy/priority on other
// users' processes) and benefits from CAP_SYS_RESOURCE (raise rlimits for
// realtime priorities); it never drops or grants capabilities to children.
package privilege

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"unsafe"
)

// Capability constants (from linux/capability.h), kept only for the ones
// this daemon cares about plus enough neighbors to make CapabilityToName
// useful in diagnostics.
const (
	CAP_CHOWN              = 0
	CAP_DAC_OVERRIDE       = 1
	CAP_FOWNER             = 3
	CAP_KILL               = 5
	CAP_SETUID             = 7
	CAP_SETGID             = 6
	CAP_NET_ADMIN          = 12
	CAP_SYS_ADMIN          = 21
	CAP_SYS_NICE           = 23
	CAP_SYS_RESOURCE       = 24
	CAP_SYS_PTRACE         = 19
	CAP_CHECKPOINT_RESTORE = 40
)

var (
	lastCapOnce  sync.Once
	lastCapValue int = 40
)

// getLastCap returns the highest capability supported by the kernel.
func getLastCap() int {
	lastCapOnce.Do(func() {
		if data, err := os.ReadFile("/proc/sys/kernel/cap_last_cap"); err == nil {
			if val, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && val >= 0 {
				lastCapValue = val
				return
			}
		}
		for cap := 40; cap <= 63; cap++ {
			ret, _, _ := syscall.Syscall(syscall.SYS_PRCTL, prCapbsetRead, uintptr(cap), 0)
			if ret == ^uintptr(0) {
				lastCapValue = cap - 1
				return
			}
		}
		lastCapValue = 63
	})
	return lastCapValue
}

const prCapbsetRead = 23

var capabilityMap = map[string]int{
	"CAP_CHOWN":              CAP_CHOWN,
	"CAP_DAC_OVERRIDE":       CAP_DAC_OVERRIDE,
	"CAP_FOWNER":             CAP_FOWNER,
	"CAP_KILL":               CAP_KILL,
	"CAP_SETUID":             CAP_SETUID,
	"CAP_SETGID":             CAP_SETGID,
	"CAP_NET_ADMIN":          CAP_NET_ADMIN,
	"CAP_SYS_ADMIN":          CAP_SYS_ADMIN,
	"CAP_SYS_NICE":           CAP_SYS_NICE,
	"CAP_SYS_RESOURCE":       CAP_SYS_RESOURCE,
	"CAP_SYS_PTRACE":         CAP_SYS_PTRACE,
	"CAP_CHECKPOINT_RESTORE": CAP_CHECKPOINT_RESTORE,
}

const linuxCapabilityVersion3 = 0x20080522

type capHeader struct {
	Version uint32
	Pid     int32
}

type capData struct {
	Effective   uint32
	Permitted   uint32
	Inheritable uint32
}

// GetCapabilities returns this process's current capability sets via capget(2).
func GetCapabilities() (effective, permitted, inheritable uint64, err error) {
	header := capHeader{Version: linuxCapabilityVersion3, Pid: 0}
	data := [2]capData{}

	_, _, errno := syscall.Syscall(syscall.SYS_CAPGET,
		uintptr(unsafe.Pointer(&header)),
		uintptr(unsafe.Pointer(&data[0])),
		0)
	if errno != 0 {
		return 0, 0, 0, fmt.Errorf("capget: %v", errno)
	}

	effective = uint64(data[0].Effective) | (uint64(data[1].Effective) << 32)
	permitted = uint64(data[0].Permitted) | (uint64(data[1].Permitted) << 32)
	inheritable = uint64(data[0].Inheritable) | (uint64(data[1].Inheritable) << 32)

	return effective, permitted, inheritable, nil
}

// HasEffective reports whether the named capability is in this process's
// effective set.
func HasEffective(name string) (bool, error) {
	cap, ok := NameToCapability(name)
	if !ok {
		return false, fmt.Errorf("unknown capability %q", name)
	}
	effective, _, _, err := GetCapabilities()
	if err != nil {
		return false, err
	}
	if cap >= 64 {
		return false, nil
	}
	return effective&(1<<uint(cap)) != 0, nil
}

// CapabilityToName converts a capability number to its name.
func CapabilityToName(cap int) string {
	for name, num := range capabilityMap {
		if num == cap {
			return name
		}
	}
	return fmt.Sprintf("CAP_%d", cap)
}

// NameToCapability converts a capability name to its number.
func NameToCapability(name string) (int, bool) {
	cap, ok := capabilityMap[strings.ToUpper(name)]
	return cap, ok
}

// Required lists the capabilities this daemon needs to apply scheduling
// attributes to arbitrary processes.
var Required = []string{"CAP_SYS_NICE"}

// Recommended lists capabilities that widen what the daemon can do but
// whose absence is not fatal.
var Recommended = []string{"CAP_SYS_RESOURCE"}

// CheckRequired reports which of Required and Recommended are missing from
// the effective set. It never returns an error that should abort startup;
// per the error-handling design, missing privilege is surfaced as a warning.
func CheckRequired() (missingRequired, missingRecommended []string) {
	for _, name := range Required {
		ok, err := HasEffective(name)
		if err != nil || !ok {
			missingRequired = append(missingRequired, name)
		}
	}
	for _, name := range Recommended {
		ok, err := HasEffective(name)
		if err != nil || !ok {
			missingRecommended = append(missingRecommended, name)
		}
	}
	return missingRequired, missingRecommended
}
