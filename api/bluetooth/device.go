package bluetooth

// Device is the typed record for a remote device, adapted from the
// teacher's DeviceData/DeviceEventData split (api/bluetooth/device.go):
// static-ish fields set at first observation, volatile fields merged on
// every subsequent signal. Unlike the teacher, bluecore tracks only the
// fields spec.md §3 names — no UUIDs, battery percentage, or legacy-pairing
// flag, since profile/GATT-level detail is out of scope.
type Device struct {
	// Address is the canonical, uppercase address and cache key.
	Address MacAddress `codec:"Address"`

	// Name is the device's advertised name.
	Name string `codec:"Name"`

	// Alias is the user- or daemon-assigned display name. Never empty
	// after ingest (see api/bluetooth.ResolveAlias).
	Alias string `codec:"Alias"`

	// Class is the raw 24-bit class-of-device integer.
	Class uint32 `codec:"Class"`

	// Kind is the device kind derived from Class. Re-deriving it from
	// Class must reproduce this value (spec.md §3 invariant 4).
	Kind DeviceKind `codec:"-"`

	// RSSI is the last-seen signal strength in dBm, saturating at the
	// int8 range. Decoded outside go-codec's generic struct merge (see
	// internal/dbushelper.DecodeDevice) because the wire value can arrive
	// as a 16-bit signed integer that must be clamped, not truncated.
	RSSI int8 `codec:"-"`

	Paired  bool `codec:"Paired"`
	Trusted bool `codec:"Trusted"`
	Blocked bool `codec:"Blocked"`
}

// ResolveAlias applies the alias-fallback chain of spec.md §3 invariant 2:
// empty alias falls back to name, empty name falls back to address.
func ResolveAlias(alias, name string, address MacAddress) string {
	if alias != "" {
		return alias
	}

	if name != "" {
		return name
	}

	return address.String()
}

// DeriveKind recomputes Kind from Class and stores it, keeping the two in
// sync (spec.md §3 invariant 4).
func (d *Device) DeriveKind() {
	d.Kind = DeviceKindFromClass(d.Class)
}
