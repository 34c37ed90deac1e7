package dispatcher

import (
	"testing"
	"time"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/bluecore-project/bluecore/api/eventbus"
	"github.com/bluecore-project/bluecore/internal/dbushelper"
	"github.com/godbus/dbus/v5"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *eventbus.Bus) {
	t.Helper()

	bus := eventbus.New()
	t.Cleanup(bus.Shutdown)

	return &Dispatcher{events: bus}, bus
}

func recv(t *testing.T, sub *eventbus.Subscription) any {
	t.Helper()

	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a published event")

		return nil
	}
}

func TestParsePropertiesChangedDevicePublishesWithResolvedAddress(t *testing.T) {
	d, bus := newTestDispatcher(t)
	sub := bus.Subscribe(eventbus.TopicDevicePropertyChanged)

	path := dbushelper.PathOf(0, mustParse(t, "AA:BB:CC:DD:EE:FF"))

	signal := &dbus.Signal{
		Name: dbushelper.DbusSignalPropertyChangedIface,
		Path: path,
		Body: []any{
			dbushelper.BluezDeviceIface,
			map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)},
		},
	}

	d.parse(signal)

	event := recv(t, sub).(DevicePropertyChanged)
	if event.Address != mustParse(t, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("Address = %v, want AA:BB:CC:DD:EE:FF", event.Address)
	}
}

func TestParsePropertiesChangedAdapterPublishesNothing(t *testing.T) {
	d, bus := newTestDispatcher(t)
	sub := bus.Subscribe(eventbus.TopicDevicePropertyChanged)

	signal := &dbus.Signal{
		Name: dbushelper.DbusSignalPropertyChangedIface,
		Path: dbushelper.AdapterPathOf(0),
		Body: []any{
			dbushelper.BluezAdapterIface,
			map[string]dbus.Variant{"Discovering": dbus.MakeVariant(true)},
		},
	}

	d.parse(signal)

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event published for adapter property change: %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestParseInterfacesAddedAdapter(t *testing.T) {
	d, bus := newTestDispatcher(t)
	sub := bus.Subscribe(eventbus.TopicAdapterFound)

	signal := &dbus.Signal{
		Name: dbushelper.DbusSignalInterfacesAddedIface,
		Body: []any{
			dbushelper.AdapterPathOf(2),
			map[string]map[string]dbus.Variant{
				dbushelper.BluezAdapterIface: {"Powered": dbus.MakeVariant(true)},
			},
		},
	}

	d.parse(signal)

	event := recv(t, sub).(AdapterFound)
	if event.AdapterIndex != 2 {
		t.Errorf("AdapterIndex = %d, want 2", event.AdapterIndex)
	}
}

func TestParseInterfacesAddedDeviceWithZeroAddressIsDropped(t *testing.T) {
	d, bus := newTestDispatcher(t)
	sub := bus.Subscribe(eventbus.TopicDeviceAdded)

	signal := &dbus.Signal{
		Name: dbushelper.DbusSignalInterfacesAddedIface,
		Body: []any{
			dbushelper.PathOf(0, bluetooth.MacAddress{}),
			map[string]map[string]dbus.Variant{
				dbushelper.BluezDeviceIface: {"Name": dbus.MakeVariant("No Address")},
			},
		},
	}

	d.parse(signal)

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected DeviceAdded for a zero-address device: %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestParseInterfacesAddedDevicePublishesWithAdapterIndex(t *testing.T) {
	d, bus := newTestDispatcher(t)
	sub := bus.Subscribe(eventbus.TopicDeviceAdded)

	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")
	signal := &dbus.Signal{
		Name: dbushelper.DbusSignalInterfacesAddedIface,
		Body: []any{
			dbushelper.PathOf(3, addr),
			map[string]map[string]dbus.Variant{
				dbushelper.BluezDeviceIface: {
					"Address": dbus.MakeVariant(addr.String()),
					"Name":    dbus.MakeVariant("Headset"),
				},
			},
		},
	}

	d.parse(signal)

	event := recv(t, sub).(DeviceAdded)
	if event.AdapterIndex != 3 {
		t.Errorf("AdapterIndex = %d, want 3", event.AdapterIndex)
	}

	if event.Device.Name != "Headset" {
		t.Errorf("Device.Name = %q, want %q", event.Device.Name, "Headset")
	}
}

func TestParseInterfacesRemovedDeviceAndAdapter(t *testing.T) {
	d, bus := newTestDispatcher(t)
	deviceSub := bus.Subscribe(eventbus.TopicDeviceRemoved)
	adapterSub := bus.Subscribe(eventbus.TopicAdapterRemoved)

	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")

	d.parse(&dbus.Signal{
		Name: dbushelper.DbusSignalInterfacesRemovedIface,
		Body: []any{dbushelper.PathOf(0, addr), []string{dbushelper.BluezDeviceIface}},
	})

	event := recv(t, deviceSub).(DeviceRemoved)
	if event.Address != addr {
		t.Errorf("Address = %v, want %v", event.Address, addr)
	}

	d.parse(&dbus.Signal{
		Name: dbushelper.DbusSignalInterfacesRemovedIface,
		Body: []any{dbushelper.AdapterPathOf(1), []string{dbushelper.BluezAdapterIface}},
	})

	adapterEvent := recv(t, adapterSub).(AdapterRemoved)
	if adapterEvent.AdapterIndex != 1 {
		t.Errorf("AdapterIndex = %d, want 1", adapterEvent.AdapterIndex)
	}
}

func mustParse(t *testing.T, s string) bluetooth.MacAddress {
	t.Helper()

	addr, err := bluetooth.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q) unexpected error: %v", s, err)
	}

	return addr
}
