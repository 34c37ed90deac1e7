// Package connectionmanager implements component E of spec.md §2: per-
// address connect/disconnect/pair/trust/block/unpair against a device
// path, a connection-state cache, and the state/pairing callbacks.
//
// Grounded on the teacher's linux/device.go (Pair/Connect/Disconnect/
// SetTrusted/SetBlocked/check), generalized with a connection-state
// machine the teacher never modeled (it is stateless request/response),
// a path-resolution memo cache (adapted from
// linux/internal/dbushelper/pathconverter.go, but xsync-backed since this
// cache is a pure optimization — spec.md §4.E — unlike the Device
// Manager's cache, whose correctness invariant forced a plain mutex).
package connectionmanager

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/bluecore-project/bluecore/api/config"
	"github.com/bluecore-project/bluecore/api/errorkinds"
	"github.com/bluecore-project/bluecore/api/eventbus"
	"github.com/bluecore-project/bluecore/busclient"
	"github.com/bluecore-project/bluecore/dispatcher"
	"github.com/bluecore-project/bluecore/internal/dbushelper"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

// Manager issues connect/disconnect/pair/trust/block/unpair calls against
// device paths and tracks per-address connection state.
type Manager struct {
	bus  *busclient.Client
	sink bluetooth.ConnectionSink

	connectTimeout time.Duration
	autoReconnect  bool
	autoTrust      bool

	mu     sync.Mutex
	states map[bluetooth.MacAddress]bluetooth.ConnectionState

	// pathCache memoizes address -> resolved device path, including the
	// synthesized fallback path. A miss costs one managed-objects scan;
	// an entry is reused without re-scanning until a DeviceRemoved event
	// for its address drops it (spec.md §4.E).
	pathCache *xsync.MapOf[bluetooth.MacAddress, dbus.ObjectPath]

	sub  *eventbus.Subscription
	done chan struct{}
}

// New acquires bus and starts this Manager's subscriber goroutine, which
// watches for unsolicited disconnects to drive auto-reconnect.
func New(bus *busclient.Client, events *eventbus.Bus, cfg config.ConnectionManager) *Manager {
	sink := cfg.Sink
	if sink == nil {
		sink = bluetooth.NilConnectionSink{}
	}

	m := &Manager{
		bus:            bus,
		sink:           sink,
		connectTimeout: cfg.ConnectTimeout(),
		autoReconnect:  cfg.AutoReconnect,
		autoTrust:      cfg.AutoTrust,
		states:         make(map[bluetooth.MacAddress]bluetooth.ConnectionState),
		pathCache:      xsync.NewMapOf[bluetooth.MacAddress, dbus.ObjectPath](),
		sub:            events.Subscribe(eventbus.TopicDevicePropertyChanged, eventbus.TopicDeviceRemoved),
		done:           make(chan struct{}),
	}

	go m.consume()

	return m
}

// GetState is a pure cache read; a missing address reads as Disconnected
// (spec.md §3).
func (m *Manager) GetState(address bluetooth.MacAddress) bluetooth.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.states[address]
}

func (m *Manager) setState(address bluetooth.MacAddress, state bluetooth.ConnectionState) {
	m.mu.Lock()
	m.states[address] = state
	m.mu.Unlock()

	m.sink.OnState(address, state)
}

// resolvePath implements spec.md §4.E's path resolution: scan the
// managed-objects tree for a device whose trailing address matches
// case-insensitively (i.e. at all, since addresses are canonicalized to
// uppercase on every entrypoint), falling back to the synthesized path on
// a scan failure or no match. A cache hit skips the scan entirely.
func (m *Manager) resolvePath(ctx context.Context, address bluetooth.MacAddress) dbus.ObjectPath {
	if path, ok := m.pathCache.Load(address); ok {
		return path
	}

	path := m.scanForPath(ctx, address)
	if path == "" {
		path = dbushelper.PathOf(0, address)
	}

	m.pathCache.Store(address, path)

	return path
}

func (m *Manager) scanForPath(ctx context.Context, address bluetooth.MacAddress) dbus.ObjectPath {
	objects, err := m.bus.GetManagedObjects(ctx)
	if err != nil {
		return ""
	}

	for path, ifaces := range objects {
		if _, ok := ifaces[dbushelper.BluezDeviceIface]; !ok {
			continue
		}

		if found, ok := dbushelper.AddressOf(path); ok && found == address {
			return path
		}
	}

	return ""
}

// Connect issues Connect on the device's path. The in-flight Connecting
// state is published before the bus call, the terminal state after
// (spec.md §3 invariant 3, §4.E).
func (m *Manager) Connect(address bluetooth.MacAddress) error {
	m.setState(address, bluetooth.ConnConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), m.connectTimeout)
	defer cancel()

	path := m.resolvePath(ctx, address)

	err := m.bus.CallWithTimeout(ctx, m.connectTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezDeviceIface, "Connect", nil)
	if err != nil {
		m.setState(address, bluetooth.ConnFailed)

		return errorkinds.New(errorkinds.KindConnectionFailed,
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "connectionmanager-connect", "address", address.String()),
				ftag.With(ftag.Internal),
				fmsg.With("could not connect device"),
			))
	}

	m.setState(address, bluetooth.ConnConnected)

	return nil
}

// Disconnect issues Disconnect on the device's path.
func (m *Manager) Disconnect(address bluetooth.MacAddress) error {
	m.setState(address, bluetooth.ConnDisconnecting)

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultDisconnectTimeout)
	defer cancel()

	path := m.resolvePath(ctx, address)

	err := m.bus.CallWithTimeout(ctx, config.DefaultDisconnectTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezDeviceIface, "Disconnect", nil)
	if err != nil {
		m.setState(address, bluetooth.ConnFailed)

		return errorkinds.New(errorkinds.KindConnectionFailed,
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "connectionmanager-disconnect", "address", address.String()),
				ftag.With(ftag.Internal),
				fmsg.With("could not disconnect device"),
			))
	}

	m.setState(address, bluetooth.ConnDisconnected)

	return nil
}

// Pair issues Pair on the device's path. No in-flight state is published
// (spec.md §4.E "Pair reports via the pairing callback only"); on success
// and AutoTrust, a trailing Set(Trusted=true) is issued immediately.
func (m *Manager) Pair(address bluetooth.MacAddress) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPairTimeout)
	defer cancel()

	path := m.resolvePath(ctx, address)

	err := m.bus.CallWithTimeout(ctx, config.DefaultPairTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezDeviceIface, "Pair", nil)
	if err != nil {
		if ctx.Err() != nil {
			m.cancelPairing(address, path)
		}

		m.sink.OnPairing(address, false, err.Error())

		return errorkinds.New(errorkinds.KindPairingFailed,
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "connectionmanager-pair", "address", address.String()),
				ftag.With(ftag.Internal),
				fmsg.With("could not pair device"),
			))
	}

	m.sink.OnPairing(address, true, "")

	if m.autoTrust {
		if err := m.setDeviceProperty(context.Background(), address, "Trusted", true); err != nil {
			logrus.WithError(err).WithField("address", address.String()).Warn("bluecore: auto-trust failed after successful pairing")
		}
	}

	return nil
}

// cancelPairing issues CancelPairing on the device object's Device1
// interface (spec.md §6) to drop the daemon-side pending request after a
// Pair call times out locally; it runs best-effort on a fresh, short
// context since the original one has already expired.
func (m *Manager) cancelPairing(address bluetooth.MacAddress, path dbus.ObjectPath) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPropertyTimeout)
	defer cancel()

	err := m.bus.CallWithTimeout(ctx, config.DefaultPropertyTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezDeviceIface, "CancelPairing", nil)
	if err != nil {
		logrus.WithError(err).WithField("address", address.String()).Warn("bluecore: CancelPairing after Pair timeout failed")
	}
}

// Unpair removes the device from its adapter, the same bus call the
// Device Manager's RemoveDevice issues (BlueZ has no separate "unpair"
// verb — pairing state is dropped by removing the device object).
func (m *Manager) Unpair(address bluetooth.MacAddress) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPropertyTimeout)
	defer cancel()

	path := m.resolvePath(ctx, address)
	adapterPath := dbus.ObjectPath(filepath.Dir(string(path)))

	err := m.bus.CallWithTimeout(ctx, config.DefaultPropertyTimeout,
		dbushelper.BluezBusName, adapterPath, dbushelper.BluezAdapterIface, "RemoveDevice",
		nil, path)
	if err != nil {
		return errorkinds.New(errorkinds.ClassifyBusError(err),
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "connectionmanager-unpair", "address", address.String()),
				ftag.With(ftag.Internal),
				fmsg.With("could not unpair device"),
			))
	}

	return nil
}

// Trust sets the device's Trusted property.
func (m *Manager) Trust(address bluetooth.MacAddress) error {
	return m.wrapPropertyError("connectionmanager-trust", address,
		m.setDeviceProperty(context.Background(), address, "Trusted", true))
}

// Block sets the device's Blocked property.
func (m *Manager) Block(address bluetooth.MacAddress) error {
	return m.wrapPropertyError("connectionmanager-block", address,
		m.setDeviceProperty(context.Background(), address, "Blocked", true))
}

func (m *Manager) wrapPropertyError(errorAt string, address bluetooth.MacAddress, err error) error {
	if err == nil {
		return nil
	}

	return errorkinds.New(errorkinds.ClassifyBusError(err),
		fault.Wrap(err,
			fctx.With(context.Background(), "error_at", errorAt, "address", address.String()),
			ftag.With(ftag.Internal),
			fmsg.With("could not write device property"),
		))
}

func (m *Manager) setDeviceProperty(ctx context.Context, address bluetooth.MacAddress, property string, value any) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultPropertyTimeout)
	defer cancel()

	path := m.resolvePath(ctx, address)

	return m.bus.SetProperty(ctx, config.DefaultPropertyTimeout, path, dbushelper.BluezDeviceIface, property, value)
}

// Destroy stops this Manager's subscriber goroutine and unreferences the
// shared Bus Client.
func (m *Manager) Destroy() error {
	close(m.done)

	return m.bus.Release()
}

// consume watches for device-removed and property-changed events so it
// can detect an unsolicited disconnect (spec.md §4.E auto-reconnect:
// a previously-Connected device reaching Disconnected without a local
// disconnect request).
func (m *Manager) consume() {
	for {
		select {
		case <-m.done:
			return

		case raw, ok := <-m.sub.Events():
			if !ok {
				return
			}

			m.apply(raw)
		}
	}
}

func (m *Manager) apply(raw any) {
	switch event := raw.(type) {
	case dispatcher.DeviceRemoved:
		m.mu.Lock()
		delete(m.states, event.Address)
		m.mu.Unlock()
		m.pathCache.Delete(event.Address)

	case dispatcher.DevicePropertyChanged:
		connected, ok := event.Variants["Connected"]
		if !ok {
			return
		}

		isConnected, ok := connected.Value().(bool)
		if !ok || isConnected {
			return
		}

		m.handleUnsolicitedDisconnect(event.Address)
	}
}

// handleUnsolicitedDisconnect implements spec.md §4.E auto-reconnect: a
// device the cache last recorded as Connected that reaches Disconnected
// through a signal (not through a local Disconnect() call, which already
// moves state to Disconnecting first) gets exactly one reconnect attempt.
func (m *Manager) handleUnsolicitedDisconnect(address bluetooth.MacAddress) {
	m.mu.Lock()
	wasConnected := m.states[address] == bluetooth.ConnConnected
	m.mu.Unlock()

	if !wasConnected {
		return
	}

	m.setState(address, bluetooth.ConnDisconnected)

	if !m.autoReconnect {
		return
	}

	go func() {
		_ = m.Connect(address)
	}()
}
