package connectionmanager

import (
	"context"
	"testing"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/bluecore-project/bluecore/dispatcher"
	"github.com/godbus/dbus/v5"
	"github.com/puzpuzpuz/xsync/v3"
)

type fakeConnSink struct {
	states []bluetooth.ConnectionState
}

func (f *fakeConnSink) OnState(_ bluetooth.MacAddress, state bluetooth.ConnectionState) {
	f.states = append(f.states, state)
}
func (f *fakeConnSink) OnPairing(bluetooth.MacAddress, bool, string) {}

func newTestManager(sink bluetooth.ConnectionSink, autoReconnect bool) *Manager {
	return &Manager{
		sink:          sink,
		autoReconnect: autoReconnect,
		states:        make(map[bluetooth.MacAddress]bluetooth.ConnectionState),
		pathCache:     xsync.NewMapOf[bluetooth.MacAddress, dbus.ObjectPath](),
		done:          make(chan struct{}),
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

func TestGetStateDefaultsToDisconnected(t *testing.T) {
	m := newTestManager(&fakeConnSink{}, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")

	if got := m.GetState(addr); got != bluetooth.ConnDisconnected {
		t.Errorf("GetState(unknown) = %v, want %v", got, bluetooth.ConnDisconnected)
	}
}

func TestSetStatePublishesToSink(t *testing.T) {
	sink := &fakeConnSink{}
	m := newTestManager(sink, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")

	m.setState(addr, bluetooth.ConnConnecting)
	m.setState(addr, bluetooth.ConnConnected)

	want := []bluetooth.ConnectionState{bluetooth.ConnConnecting, bluetooth.ConnConnected}
	if len(sink.states) != len(want) {
		t.Fatalf("sink recorded %v, want %v", sink.states, want)
	}

	for i := range want {
		if sink.states[i] != want[i] {
			t.Errorf("sink.states[%d] = %v, want %v", i, sink.states[i], want[i])
		}
	}

	if got := m.GetState(addr); got != bluetooth.ConnConnected {
		t.Errorf("GetState after transitions = %v, want %v", got, bluetooth.ConnConnected)
	}
}

func TestResolvePathCacheHitSkipsBusCall(t *testing.T) {
	m := newTestManager(&fakeConnSink{}, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")
	want := dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")

	m.pathCache.Store(addr, want)

	// m.bus is nil: a cache miss would panic, so reaching a correct
	// answer here proves resolvePath never touches the bus on a hit.
	if got := m.resolvePath(context.Background(), addr); got != want {
		t.Errorf("resolvePath(cached) = %q, want %q", got, want)
	}
}

func TestApplyDeviceRemovedClearsStateAndPathCache(t *testing.T) {
	m := newTestManager(&fakeConnSink{}, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")

	m.states[addr] = bluetooth.ConnConnected
	m.pathCache.Store(addr, dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"))

	m.apply(dispatcher.DeviceRemoved{Address: addr})

	if _, ok := m.states[addr]; ok {
		t.Error("state still present after DeviceRemoved")
	}

	if _, ok := m.pathCache.Load(addr); ok {
		t.Error("pathCache entry still present after DeviceRemoved")
	}
}

func TestUnsolicitedDisconnectOnlyFiresWhenPreviouslyConnected(t *testing.T) {
	sink := &fakeConnSink{}
	m := newTestManager(sink, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")

	// Never connected: a Connected=false signal must be a no-op.
	m.apply(dispatcher.DevicePropertyChanged{
		Address:  addr,
		Variants: map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)},
	})

	if len(sink.states) != 0 {
		t.Fatalf("sink.states = %v, want no transitions for a never-connected device", sink.states)
	}

	m.states[addr] = bluetooth.ConnConnected

	m.apply(dispatcher.DevicePropertyChanged{
		Address:  addr,
		Variants: map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)},
	})

	if got := m.GetState(addr); got != bluetooth.ConnDisconnected {
		t.Errorf("GetState after unsolicited disconnect = %v, want %v", got, bluetooth.ConnDisconnected)
	}

	if len(sink.states) != 1 || sink.states[0] != bluetooth.ConnDisconnected {
		t.Errorf("sink.states = %v, want exactly [Disconnected]", sink.states)
	}
}

func TestPropertyChangedIgnoresNonConnectedKeys(t *testing.T) {
	sink := &fakeConnSink{}
	m := newTestManager(sink, false)
	addr := mustParse(t, "AA:BB:CC:DD:EE:FF")
	m.states[addr] = bluetooth.ConnConnected

	m.apply(dispatcher.DevicePropertyChanged{
		Address:  addr,
		Variants: map[string]dbus.Variant{"Trusted": dbus.MakeVariant(true)},
	})

	if len(sink.states) != 0 {
		t.Errorf("sink.states = %v, want no transitions from an unrelated property", sink.states)
	}
}
