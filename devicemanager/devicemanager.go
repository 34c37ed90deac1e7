// Package devicemanager owns the device cache and adapter discovery
// lifecycle: component D of spec.md §2. It subscribes to the
// dispatcher's tagged events and applies them to its cache on its own
// goroutine, under its own lock — the public API methods acquire the
// same lock for reads/writes and never hold it across a bus call.
//
// Grounded on the teacher's linux/session.go (refreshStore, adapter
// selection) and linux/adapter.go (StartDiscovery/StopDiscovery/
// RemoveDevice), with the cache itself rebuilt on top of a plain
// map[bluetooth.MacAddress]bluetooth.Device and a sync.Mutex instead of
// the teacher's lock-free api/helpers/sessionstore — spec.md §5 requires
// one exclusive lock spanning the cache AND the scanning/running flags,
// an invariant a lock-free map cannot express.
package devicemanager

import (
	"context"
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
	"github.com/sirupsen/logrus"
)

// Manager owns one device cache fed by dispatcher events, and drives
// start/stop discovery on the one selected adapter.
type Manager struct {
	bus  *busclient.Client
	sink bluetooth.DiscoverySink

	scanDuration time.Duration

	mu           sync.Mutex
	devices      map[bluetooth.MacAddress]bluetooth.Device
	scanning     bool
	running      bool
	adapterPath  dbus.ObjectPath
	adapterIndex int
	haveAdapter  bool

	sub  *eventbus.Subscription
	done chan struct{}
}

// New acquires bus, builds an empty cache, resolves the default adapter,
// and starts this Manager's subscriber goroutine. It returns success even
// when no adapter is found — a warning is logged and the manager stays
// usable for later queries (spec.md §4.D create contract).
func New(bus *busclient.Client, events *eventbus.Bus, cfg config.DeviceManager) *Manager {
	sink := cfg.Sink
	if sink == nil {
		sink = bluetooth.NilDiscoverySink{}
	}

	m := &Manager{
		bus:          bus,
		sink:         sink,
		scanDuration: cfg.ScanDuration,
		devices:      make(map[bluetooth.MacAddress]bluetooth.Device),
		running:      true,
		sub: events.Subscribe(
			eventbus.TopicDeviceAdded,
			eventbus.TopicDevicePropertyChanged,
			eventbus.TopicDeviceRemoved,
			eventbus.TopicAdapterFound,
			eventbus.TopicAdapterRemoved,
		),
		done: make(chan struct{}),
	}

	m.resolveDefaultAdapter()

	go m.consume()

	return m
}

// resolveDefaultAdapter scans the managed-objects tree once and selects
// the lowest-indexed object exporting the adapter interface (spec.md
// §4.D "adapter selection"). Go's map iteration order is randomized, so
// selection cannot depend on range order over the decoded
// GetManagedObjects reply (every example in the corpus decodes that
// reply straight into a Go map, discarding wire order); the lowest
// adapter index is used instead as the one order-independent tiebreak
// that still picks the same adapter on every call. Failure is reported
// to the sink, not returned.
func (m *Manager) resolveDefaultAdapter() {
	objects, err := m.bus.GetManagedObjects(context.Background())
	if err != nil {
		logrus.WithError(err).Warn("bluecore: could not fetch managed objects while selecting an adapter")
		m.sink.OnError(errorkinds.New(errorkinds.ClassifyBusError(err), err))

		return
	}

	bestPath := dbus.ObjectPath("")
	bestIndex := -1

	for path, ifaces := range objects {
		if _, ok := ifaces[dbushelper.BluezAdapterIface]; !ok {
			continue
		}

		index, ok := dbushelper.AdapterIndexOf(path)
		if !ok {
			continue
		}

		if bestIndex == -1 || index < bestIndex {
			bestPath = path
			bestIndex = index
		}
	}

	if bestIndex == -1 {
		logrus.Warn("bluecore: no adapter found at startup; discovery will fail until one appears")
		m.sink.OnError(errorkinds.New(errorkinds.KindNoDevice, errorkinds.ErrNoAdapter))

		return
	}

	m.mu.Lock()
	m.adapterPath = bestPath
	m.adapterIndex = bestIndex
	m.haveAdapter = true
	m.mu.Unlock()
}

// StartDiscovery issues StartDiscovery on the selected adapter. Idempotent:
// if already scanning, no bus call is made (spec.md §4.D).
func (m *Manager) StartDiscovery() error {
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()

		return nil
	}

	if !m.haveAdapter {
		m.mu.Unlock()

		return errorkinds.New(errorkinds.KindNoDevice, errorkinds.ErrAdapterNotFound)
	}

	path := m.adapterPath
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPropertyTimeout)
	defer cancel()

	if err := m.bus.CallWithTimeout(ctx, config.DefaultPropertyTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezAdapterIface, "StartDiscovery", nil); err != nil {
		return errorkinds.New(errorkinds.ClassifyBusError(err),
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "devicemanager-start-discovery"),
				ftag.With(ftag.Internal),
				fmsg.With("could not start discovery"),
			))
	}

	m.mu.Lock()
	m.scanning = true
	m.mu.Unlock()

	m.sink.OnScanStatus(true)

	if m.scanDuration > 0 {
		go m.stopAfter(m.scanDuration)
	}

	return nil
}

func (m *Manager) stopAfter(d time.Duration) {
	time.Sleep(d)
	_ = m.StopDiscovery()
}

// StopDiscovery is the symmetric, idempotent counterpart of StartDiscovery.
func (m *Manager) StopDiscovery() error {
	m.mu.Lock()
	if !m.scanning {
		m.mu.Unlock()

		return nil
	}

	path := m.adapterPath
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPropertyTimeout)
	defer cancel()

	if err := m.bus.CallWithTimeout(ctx, config.DefaultPropertyTimeout,
		dbushelper.BluezBusName, path, dbushelper.BluezAdapterIface, "StopDiscovery", nil); err != nil {
		return errorkinds.New(errorkinds.ClassifyBusError(err),
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "devicemanager-stop-discovery"),
				ftag.With(ftag.Internal),
				fmsg.With("could not stop discovery"),
			))
	}

	m.mu.Lock()
	m.scanning = false
	m.mu.Unlock()

	m.sink.OnScanStatus(false)

	return nil
}

// ListDevices returns a value-copy snapshot of every cached Device
// (spec.md §4.D "a value copy taken under the lock").
func (m *Manager) ListDevices() []bluetooth.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]bluetooth.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}

	return out
}

// GetDevice returns a point lookup by address.
func (m *Manager) GetDevice(address bluetooth.MacAddress) (bluetooth.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[address]

	return d, ok
}

// SetAlias mutates the cached alias in place. No bus call is made — alias
// persistence is out of scope (spec.md §4.D).
func (m *Manager) SetAlias(address bluetooth.MacAddress, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[address]
	if !ok {
		return errorkinds.New(errorkinds.KindNoDevice, errorkinds.ErrDeviceNotFound)
	}

	d.Alias = alias
	m.devices[address] = d

	return nil
}

// RemoveDevice issues RemoveDevice on the adapter, and on success drops
// the address from the cache.
func (m *Manager) RemoveDevice(address bluetooth.MacAddress) error {
	m.mu.Lock()
	if !m.haveAdapter {
		m.mu.Unlock()

		return errorkinds.New(errorkinds.KindNoDevice, errorkinds.ErrAdapterNotFound)
	}

	adapterPath := m.adapterPath
	adapterIndex := m.adapterIndex
	m.mu.Unlock()

	devicePath := dbushelper.PathOf(adapterIndex, address)

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultPropertyTimeout)
	defer cancel()

	if err := m.bus.CallWithTimeout(ctx, config.DefaultPropertyTimeout,
		dbushelper.BluezBusName, adapterPath, dbushelper.BluezAdapterIface, "RemoveDevice",
		nil, devicePath); err != nil {
		return errorkinds.New(errorkinds.ClassifyBusError(err),
			fault.Wrap(err,
				fctx.With(ctx, "error_at", "devicemanager-remove-device", "address", address.String()),
				ftag.With(ftag.Internal),
				fmsg.With("could not remove device"),
			))
	}

	m.mu.Lock()
	delete(m.devices, address)
	m.mu.Unlock()

	return nil
}

// Destroy stops scanning if active, stops this Manager's subscriber
// goroutine, and drops the cache (spec.md §4.D). The shared Bus Client is
// only unreferenced, never force-closed.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	wasScanning := m.scanning
	m.running = false
	m.mu.Unlock()

	if wasScanning {
		_ = m.StopDiscovery()
	}

	close(m.done)

	m.mu.Lock()
	m.devices = nil
	m.mu.Unlock()

	return m.bus.Release()
}

// consume is this Manager's single subscriber goroutine: it applies every
// dispatcher event under m.mu and never blocks on a bus call while
// holding it.
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
	case dispatcher.DeviceAdded:
		m.applyDeviceAdded(event)
	case dispatcher.DevicePropertyChanged:
		m.applyDevicePropertyChanged(event)
	case dispatcher.DeviceRemoved:
		m.mu.Lock()
		delete(m.devices, event.Address)
		m.mu.Unlock()
	case dispatcher.AdapterFound:
		m.mu.Lock()
		if !m.haveAdapter {
			m.adapterPath = dbushelper.AdapterPathOf(event.AdapterIndex)
			m.adapterIndex = event.AdapterIndex
			m.haveAdapter = true
		}
		m.mu.Unlock()
	case dispatcher.AdapterRemoved:
		m.mu.Lock()
		if m.haveAdapter && m.adapterIndex == event.AdapterIndex {
			m.haveAdapter = false
		}
		m.mu.Unlock()
	}
}

// applyDeviceAdded implements the "ingest from InterfacesAdded" algorithm
// of spec.md §4.D: insert-and-fire-once if absent, merge-without-firing if
// present.
func (m *Manager) applyDeviceAdded(event dispatcher.DeviceAdded) {
	device := event.Device
	device.Alias = bluetooth.ResolveAlias(device.Alias, device.Name, device.Address)

	m.mu.Lock()
	current, existed := m.devices[device.Address]
	if existed {
		m.devices[device.Address] = mergeDevice(current, device, event.Variants)
	} else {
		m.devices[device.Address] = device
	}
	m.mu.Unlock()

	if !existed {
		m.sink.OnDiscovered(device)
	}
}

// applyDevicePropertyChanged implements "ingest from PropertiesChanged":
// merge onto a known Device, or treat an unknown address as a fresh
// discovery (spec.md §4.D).
func (m *Manager) applyDevicePropertyChanged(event dispatcher.DevicePropertyChanged) {
	m.mu.Lock()
	existing, known := m.devices[event.Address]
	m.mu.Unlock()

	base := existing
	if !known {
		base = bluetooth.Device{Address: event.Address}
	}

	if err := dbushelper.DecodeDevice(event.Variants, &base); err != nil {
		logrus.WithError(err).Warn("bluecore: could not decode PropertiesChanged device properties")
		m.sink.OnError(errorkinds.New(errorkinds.KindIPCError, err))

		return
	}

	base.Address = event.Address
	base.Alias = bluetooth.ResolveAlias(base.Alias, base.Name, base.Address)

	m.mu.Lock()
	m.devices[event.Address] = base
	m.mu.Unlock()

	if !known {
		m.sink.OnDiscovered(base)
	}
}

// mergeDevice applies b's fields onto a, field-by-field, preserving a's
// value for any field absent from variants (spec.md §4.D "merge is
// field-by-field; unlisted fields are preserved"). variants is the raw
// InterfacesAdded property dict b was decoded from; presence is checked
// against it directly rather than against b's zero value, so a
// re-added device that genuinely reports RSSI=0 or Paired=false does
// not get confused with a re-add whose signal simply omitted the key.
func mergeDevice(a, b bluetooth.Device, variants map[string]dbus.Variant) bluetooth.Device {
	if _, ok := variants["Name"]; ok {
		a.Name = b.Name
	}

	if _, ok := variants["Alias"]; ok {
		a.Alias = b.Alias
	}

	if _, ok := variants["Class"]; ok {
		a.Class = b.Class
		a.Kind = b.Kind
	}

	if _, ok := variants["RSSI"]; ok {
		a.RSSI = b.RSSI
	}

	if _, ok := variants["Paired"]; ok {
		a.Paired = b.Paired
	}

	if _, ok := variants["Trusted"]; ok {
		a.Trusted = b.Trusted
	}

	if _, ok := variants["Blocked"]; ok {
		a.Blocked = b.Blocked
	}

	return a
}
