// Package audiosource watches the session bus for audio-stream
// open/close notifications and reports them as (pid, active) deltas.
// PipeWire's own session-monitoring API is native (not D-Bus), but the
// daemon's own signal surface mirrors the shape described in the
// external interfaces: whatever emits these deltas publishes them as
// session-bus signals this package subscribes to.
package audiosource

import (
	"context"
	"fmt"

	"scheduler-go/logging"

	"github.com/godbus/dbus/v5"
)

const (
	matchInterface = "com.system76.Scheduler.AudioMonitor"
	matchSignal    = "StreamStateChanged"
)

// Delta is one audio-session activation/deactivation event.
type Delta struct {
	Pid    int
	Active bool
}

// Watch subscribes to StreamStateChanged signals on the session bus and
// invokes onDelta for each one until ctx is cancelled. A session-bus
// disconnect degrades gracefully: the loop logs the loss and continues
// without audio boosting rather than treating it as fatal.
func Watch(ctx context.Context, onDelta func(Delta)) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	defer conn.Close()

	matchRule := fmt.Sprintf("type='signal',interface='%s',member='%s'", matchInterface, matchSignal)
	if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		return err
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				logging.Default().Warn("audio session bus disconnected; audio boosting disabled")
				return nil
			}
			if sig.Name != matchInterface+"."+matchSignal {
				continue
			}
			if len(sig.Body) != 2 {
				continue
			}
			pid, ok1 := sig.Body[0].(uint32)
			active, ok2 := sig.Body[1].(bool)
			if !ok1 || !ok2 {
				continue
			}
			onDelta(Delta{Pid: int(pid), Active: active})
		}
	}
}
