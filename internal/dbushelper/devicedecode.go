package dbushelper

// DecodeDevice merges the subset of a dbus property dictionary the core
// understands — Address, Name, Alias, Class, Paired, Trusted, Blocked,
// RSSI (spec.md §4.C) — onto an existing bluetooth.Device, leaving fields
// absent from variants untouched (spec.md §4.D "merge is field-by-field;
// unlisted fields are preserved"). Unknown keys are ignored for
// forward-compatibility with newer daemons (spec.md §4.C).

import (
	"math"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

// DecodeDevice decodes variants onto device. Since dst is merged onto (not
// replaced), only keys present in variants change any field.
func DecodeDevice(variants map[string]dbus.Variant, device *bluetooth.Device) error {
	if err := DecodeVariantMap(filterKnownDeviceKeys(variants), device); err != nil {
		return err
	}

	if v, ok := variants["RSSI"]; ok {
		device.RSSI = clampRSSI(v)
	}

	device.DeriveKind()

	return nil
}

// knownDeviceKeys are the property names spec.md §4.C says the core
// understands, except RSSI, which clampRSSI decodes separately; everything
// else is dropped before reaching go-codec so an unrecognized key never
// trips a decode error.
var knownDeviceKeys = map[string]bool{
	"Address": true,
	"Name":    true,
	"Alias":   true,
	"Class":   true,
	"Paired":  true,
	"Trusted": true,
	"Blocked": true,
}

func filterKnownDeviceKeys(variants map[string]dbus.Variant) map[string]dbus.Variant {
	filtered := make(map[string]dbus.Variant, len(variants))

	for k, v := range variants {
		if knownDeviceKeys[k] {
			filtered[k] = v
		}
	}

	return filtered
}

// clampRSSI always recurses into the variant's underlying value (fixing
// the spec.md §9 bug note) before saturating it to the signed 8-bit range.
// RSSI is commonly advertised as a DBus "n" (int16); a handful of daemons
// have been observed sending other integer widths, so every integer kind
// is handled.
func clampRSSI(v dbus.Variant) int8 {
	var value int64

	switch n := v.Value().(type) {
	case int16:
		value = int64(n)
	case int32:
		value = int64(n)
	case int64:
		value = n
	case int8:
		value = int64(n)
	case byte:
		value = int64(n)
	case int:
		value = int64(n)
	case uint16:
		value = int64(n)
	case uint32:
		value = int64(n)
	case uint64:
		value = int64(min(n, math.MaxInt64))
	case uint:
		value = int64(min(uint64(n), math.MaxInt64))
	default:
		return 0
	}

	switch {
	case value > math.MaxInt8:
		return math.MaxInt8
	case value < math.MinInt8:
		return math.MinInt8
	default:
		return int8(value)
	}
}
