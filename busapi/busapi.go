// Package busapi exposes the daemon's control surface over D-Bus:
// com.system76.Scheduler at /com/system76/Scheduler, per the external
// interfaces this daemon publishes.
package busapi

import (
	"scheduler-go/logging"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// BusName is the well-known name this daemon requests on the system bus.
	BusName = "com.system76.Scheduler"
	// ObjectPath is where the control object is exported.
	ObjectPath = dbus.ObjectPath("/com/system76/Scheduler")
	// InterfaceName is the D-Bus interface implemented by the control object.
	InterfaceName = "com.system76.Scheduler"
)

// Commands is the set of loop-side operations the bus surface can
// trigger. The event loop implements this and owns all the state these
// calls touch; busapi never reaches into the store or tracker directly.
type Commands interface {
	// SetForeground posts a focus-change event for pid onto the event loop.
	SetForeground(pid uint32) *dbus.Error
	// SetProfile selects a named CFS profile ("responsive" or "default"),
	// overriding automatic AC/battery mapping until cleared.
	SetProfile(name string) *dbus.Error
	// CurrentCfsProfile reports the presently-active CFS profile name,
	// exposed as the CurrentCfsProfile bus method.
	CurrentCfsProfile() (string, *dbus.Error)
}

// control is the D-Bus-facing adapter; its exported methods become the
// bus methods because godbus reflects on method names.
type control struct {
	impl Commands
}

// SetForeground implements the SetForeground(u32 pid) bus method.
func (c *control) SetForeground(pid uint32) *dbus.Error {
	return c.impl.SetForeground(pid)
}

// SetProfile implements the SetProfile(string name) bus method.
func (c *control) SetProfile(name string) *dbus.Error {
	return c.impl.SetProfile(name)
}

// CurrentCfsProfile implements the CurrentCfsProfile() bus method used
// by the status CLI; exposed as a plain method rather than a
// org.freedesktop.DBus.Properties entry to keep the client side simple.
func (c *control) CurrentCfsProfile() (string, *dbus.Error) {
	return c.impl.CurrentCfsProfile()
}

// Server owns the bus connection and the exported control object.
type Server struct {
	conn *dbus.Conn
}

// Serve connects to the system bus, requests BusName, and exports impl
// at ObjectPath. Callers keep the daemon running for as long as the
// connection should stay open; Close releases the name and connection.
func Serve(impl Commands) (*Server, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}

	ctrl := &control{impl: impl}
	if err := conn.Export(ctrl, ObjectPath, InterfaceName); err != nil {
		conn.Close()
		return nil, err
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: InterfaceName,
				Methods: []introspect.Method{
					{
						Name: "SetForeground",
						Args: []introspect.Arg{{Name: "pid", Type: "u", Direction: "in"}},
					},
					{
						Name: "SetProfile",
						Args: []introspect.Arg{{Name: "name", Type: "s", Direction: "in"}},
					},
					{
						Name: "CurrentCfsProfile",
						Args: []introspect.Arg{{Name: "profile", Type: "s", Direction: "out"}},
					},
				},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, dbus.ErrClosed
	}

	logging.Default().Info("control bus surface active", "name", BusName, "path", string(ObjectPath))
	return &Server{conn: conn}, nil
}

// EmitProfileChanged signals that the active CFS profile changed, for
// clients watching rather than polling CurrentCfsProfile.
func (s *Server) EmitProfileChanged(name string) error {
	return s.conn.Emit(ObjectPath, InterfaceName+".ProfileChanged", name)
}

// Close releases the well-known name and closes the bus connection.
func (s *Server) Close() error {
	return s.conn.Close()
}
