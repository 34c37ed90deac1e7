package dbushelper

import (
	"testing"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

func TestPathOfAddressOfRoundTrip(t *testing.T) {
	addrs := []string{"AA:BB:CC:DD:EE:FF", "00:11:22:33:44:55", "9C:B6:D0:1C:BB:B0"}

	for _, a := range addrs {
		address, err := bluetooth.ParseMAC(a)
		if err != nil {
			t.Fatalf("ParseMAC(%q) unexpected error: %v", a, err)
		}

		path := PathOf(0, address)

		got, ok := AddressOf(path)
		if !ok {
			t.Fatalf("AddressOf(%q) ok = false, want true", path)
		}

		if got != address {
			t.Errorf("AddressOf(PathOf(0, %v)) = %v, want %v", address, got, address)
		}
	}
}

func TestAddressOfRejectsNonDevicePaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"adapter path", "/org/bluez/hci0"},
		{"root path", "/org/bluez"},
		{"wrong prefix", "/org/bluez/hci0/adapter_AA_BB_CC_DD_EE_FF"},
		{"malformed address", "/org/bluez/hci0/dev_ZZ_BB_CC_DD_EE_FF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := AddressOf(dbus.ObjectPath(tt.path)); ok {
				t.Errorf("AddressOf(%q) ok = true, want false", tt.path)
			}
		})
	}
}

func TestAdapterPathOfAdapterIndexOfRoundTrip(t *testing.T) {
	for _, index := range []int{0, 1, 7} {
		path := AdapterPathOf(index)

		got, ok := AdapterIndexOf(path)
		if !ok {
			t.Fatalf("AdapterIndexOf(%q) ok = false, want true", path)
		}

		if got != index {
			t.Errorf("AdapterIndexOf(AdapterPathOf(%d)) = %d, want %d", index, got, index)
		}
	}
}

func TestAdapterIndexOfRejectsNonAdapterPaths(t *testing.T) {
	if _, ok := AdapterIndexOf(dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")); ok {
		t.Error("AdapterIndexOf(device path) ok = true, want false")
	}
}
