// Package busclient opens the single system-bus session the Device
// Manager and Connection Manager share, and exposes the three operations
// spec.md §4.A names: a blocking call with reply, match-rule registration,
// and a bounded drain ("pump") of incoming signals for the Dispatcher to
// call from its own loop.
//
// Grounded on the teacher's linux/session.go (Start/watchBluezSystemBus),
// redesigned per spec.md §9: the teacher ranges forever over
// conn.Signal(ch) on its own goroutine; this package instead buffers
// signals into a channel and lets the caller decide how much time to
// spend draining it, so the Dispatcher's loop (one thread, bounded drain,
// idle sleep) owns the scheduling.
package busclient

import (
	"context"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluecore-project/bluecore/api/errorkinds"
	"github.com/bluecore-project/bluecore/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Client owns one system-bus connection. It is reference-counted
// (spec.md §9 "shared bus session") so a Device Manager and a Connection
// Manager constructed against the same Client share one session and one
// set of match rules.
type Client struct {
	conn *dbus.Conn

	signals chan *dbus.Signal
	refs    int
}

// wellKnownName is attempted, not required, at creation (spec.md §4.A).
const wellKnownName = "org.bluecore.client"

// Open establishes the system-bus session and installs the single signal
// match rule the core requires. It fails if the bus cannot be reached or
// the match rule cannot be installed — there is no partial state on error
// (spec.md §4.A).
func Open() (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errorkinds.New(errorkinds.ClassifyBusError(err),
			fault.Wrap(err,
				fctx.With(context.Background(), "error_at", "busclient-open"),
				ftag.With(ftag.Internal),
				fmsg.With("cannot open system bus session"),
			))
	}

	c := &Client{
		conn:    conn,
		signals: make(chan *dbus.Signal, 64),
		refs:    1,
	}

	if _, err := conn.RequestName(wellKnownName, dbus.NameFlagDoNotQueue); err != nil {
		logrus.WithError(err).Warn("bluecore: could not acquire well-known bus name, continuing as a plain consumer")
	}

	if err := c.registerMatch(dbushelper.BluezSignalMatch); err != nil {
		_ = conn.Close()

		return nil, errorkinds.New(errorkinds.KindIPCError,
			fault.Wrap(err,
				fctx.With(context.Background(), "error_at", "busclient-addmatch"),
				ftag.With(ftag.Internal),
				fmsg.With("cannot install signal match rule"),
			))
	}

	conn.Signal(c.signals)

	return c, nil
}

// Acquire increments the reference count and returns the same Client,
// letting a Connection Manager share a Device Manager's bus session.
func (c *Client) Acquire() *Client {
	c.refs++

	return c
}

// Release decrements the reference count; the underlying connection is
// only unreferenced, never force-closed, while other components may still
// hold it (spec.md §5 "the bus client's connection is unreferenced, not
// closed").
func (c *Client) Release() error {
	c.refs--
	if c.refs > 0 {
		return nil
	}

	return c.conn.Close()
}

// registerMatch installs a single match-rule expression (spec.md §4.A).
func (c *Client) registerMatch(rule string) error {
	call := c.conn.BusObject().Call(dbushelper.DbusSignalAddMatchIface, 0, rule)

	return call.Err
}

// CallWithTimeout issues a blocking method call and waits up to timeout
// for the reply, decoding it into store if the call succeeds.
func (c *Client) CallWithTimeout(
	ctx context.Context,
	timeout time.Duration,
	destination string, path dbus.ObjectPath, iface, member string,
	store any, args ...any,
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	obj := c.conn.Object(destination, path)

	call := obj.CallWithContext(ctx, iface+"."+member, 0, args...)
	if call.Err != nil {
		return call.Err
	}

	if store == nil {
		return nil
	}

	return call.Store(store)
}

// GetManagedObjects calls the standard ObjectManager.GetManagedObjects on
// the BlueZ root object (spec.md §6).
func (c *Client) GetManagedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)

	obj := c.conn.Object(dbushelper.BluezBusName, dbushelper.BluezRootPath)

	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		return nil, call.Err
	}

	if err := call.Store(&objects); err != nil {
		return nil, err
	}

	return objects, nil
}

// SetProperty calls the standard Properties.Set on path/iface.
func (c *Client) SetProperty(ctx context.Context, timeout time.Duration, path dbus.ObjectPath, iface, property string, value any) error {
	return c.CallWithTimeout(ctx, timeout,
		dbushelper.BluezBusName, path, "org.freedesktop.DBus.Properties", "Set",
		nil, iface, property, dbus.MakeVariant(value))
}

// Pump drains signals already delivered to the Client's buffered channel
// for up to budget, handing each to handle. It returns the number of
// signals drained. This is the Dispatcher's bounded-drain primitive
// (spec.md §4.A, §5) — it never blocks past budget waiting for a signal
// that never arrives, and never blocks indefinitely like the teacher's
// `for signal := range ch` loop.
func (c *Client) Pump(budget time.Duration, handle func(*dbus.Signal)) int {
	deadline := time.NewTimer(budget)
	defer deadline.Stop()

	drained := 0

	for {
		select {
		case sig, ok := <-c.signals:
			if !ok {
				return drained
			}

			handle(sig)
			drained++

		case <-deadline.C:
			return drained
		}
	}
}
