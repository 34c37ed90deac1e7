package bluetooth

// DiscoverySink is the capability interface the host implements to receive
// Device Manager callbacks. Adapted from the teacher's
// AuthorizeDevicePairing interface shape (api/bluetooth/device.go) — a
// method-set the core holds by reference, replacing a void*-user-data
// callback table (spec.md §9 design notes).
type DiscoverySink interface {
	// OnDiscovered fires exactly once per address on first observation.
	OnDiscovered(d Device)

	// OnScanStatus fires whenever start-discovery/stop-discovery changes
	// the scanning flag.
	OnScanStatus(scanning bool)

	// OnError fires for any condition the Dispatcher or Device Manager
	// could not propagate synchronously.
	OnError(err error)
}

// ConnectionState is the state of a per-address connection, per spec.md
// §3's connection-state cache. The zero value is ConnDisconnected, so a
// missing cache entry reads as disconnected without an explicit default.
type ConnectionState int

// The connection-state machine's states (spec.md §4.E).
const (
	ConnDisconnected ConnectionState = iota
	ConnConnecting
	ConnConnected
	ConnDisconnecting
	ConnFailed
)

// String returns a human-readable state name.
func (c ConnectionState) String() string {
	switch c {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnecting:
		return "disconnecting"
	case ConnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionSink is the capability interface the host implements to
// receive Connection Manager callbacks.
type ConnectionSink interface {
	// OnState fires once per transition, in order, for a given address.
	OnState(address MacAddress, state ConnectionState)

	// OnPairing fires once per Pair() call with the outcome; errText
	// carries the daemon's error text on failure and is empty on success.
	OnPairing(address MacAddress, success bool, errText string)
}

// NilDiscoverySink is a DiscoverySink that discards every callback.
type NilDiscoverySink struct{}

func (NilDiscoverySink) OnDiscovered(Device) {}
func (NilDiscoverySink) OnScanStatus(bool) {}
func (NilDiscoverySink) OnError(error) {}

// NilConnectionSink is a ConnectionSink that discards every callback.
type NilConnectionSink struct{}

func (NilConnectionSink) OnState(MacAddress, ConnectionState) {}
func (NilConnectionSink) OnPairing(MacAddress, bool, string) {}
