// Package powersource reports whether the system is on AC power by
// reading the conventional sysfs power-supply tree, and watches it for
// transitions.
package powersource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sysClassPowerSupply = "/sys/class/power_supply"

// ReadOnAC inspects every power-supply device of type "Mains" and
// reports whether any of them report online=1. Systems with no AC
// adapter entries (e.g. desktops) are always considered on-AC.
func ReadOnAC() bool {
	entries, err := os.ReadDir(sysClassPowerSupply)
	if err != nil {
		return true
	}

	sawMains := false
	for _, e := range entries {
		dir := filepath.Join(sysClassPowerSupply, e.Name())
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(typ)) != "Mains" {
			continue
		}
		sawMains = true
		online, err := os.ReadFile(filepath.Join(dir, "online"))
		if err == nil && strings.TrimSpace(string(online)) == "1" {
			return true
		}
	}
	return !sawMains
}

// Watch polls ReadOnAC and calls onChange whenever the value flips,
// including once immediately with the initial reading. Real power
// notifications arrive as udev/ACPI events on other platforms; polling
// the sysfs file is the portable fallback and is cheap enough at this
// period to not matter.
func Watch(ctx context.Context, period time.Duration, onChange func(onAC bool)) {
	current := ReadOnAC()
	onChange(current)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := ReadOnAC()
			if next != current {
				current = next
				onChange(current)
			}
		}
	}
}
