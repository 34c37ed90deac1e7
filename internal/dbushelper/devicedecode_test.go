package dbushelper

import (
	"math"
	"testing"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

func TestClampRSSISaturates(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int8
	}{
		{"int16 in range", int16(-40), -40},
		{"int16 overflow high", int16(200), math.MaxInt8},
		{"int16 overflow low", int16(-200), math.MinInt8},
		{"int32 overflow high", int32(1000), math.MaxInt8},
		{"int64 overflow low", int64(-99999), math.MinInt8},
		{"int8 passthrough", int8(-12), -12},
		{"byte in range", byte(5), 5},
		{"int in range", int(-70), -70},
		{"unsupported type", "nonsense", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampRSSI(dbus.MakeVariant(tt.value)); got != tt.want {
				t.Errorf("clampRSSI(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeDeviceMergesKnownFieldsOnly(t *testing.T) {
	device := bluetooth.Device{Name: "stale", Alias: "keep-me"}

	variants := map[string]dbus.Variant{
		"Name":    dbus.MakeVariant("Pixel 8"),
		"Class":   dbus.MakeVariant(uint32(0x000200)),
		"RSSI":    dbus.MakeVariant(int16(-55)),
		"Unknown": dbus.MakeVariant("should be ignored"),
	}

	if err := DecodeDevice(variants, &device); err != nil {
		t.Fatalf("DecodeDevice unexpected error: %v", err)
	}

	if device.Name != "Pixel 8" {
		t.Errorf("Name = %q, want %q", device.Name, "Pixel 8")
	}

	if device.Alias != "keep-me" {
		t.Errorf("Alias = %q, want preserved %q", device.Alias, "keep-me")
	}

	if device.RSSI != -55 {
		t.Errorf("RSSI = %d, want -55", device.RSSI)
	}

	if device.Kind != bluetooth.KindPhone {
		t.Errorf("Kind = %q, want %q (derived from Class)", device.Kind, bluetooth.KindPhone)
	}
}

func TestDecodeDeviceWithoutRSSILeavesItUntouched(t *testing.T) {
	device := bluetooth.Device{RSSI: -30}

	variants := map[string]dbus.Variant{
		"Name": dbus.MakeVariant("Thing"),
	}

	if err := DecodeDevice(variants, &device); err != nil {
		t.Fatalf("DecodeDevice unexpected error: %v", err)
	}

	if device.RSSI != -30 {
		t.Errorf("RSSI = %d, want untouched -30", device.RSSI)
	}
}
