// Package config describes the recognized configuration options for the
// Device Manager and Connection Manager, in the same shape as the
// teacher's api/config/config.go (a plain struct with documented
// defaults) — extended here with the two option groups spec.md §6 names.
package config

import (
	"time"

	"github.com/bluecore-project/bluecore/api/bluetooth"
)

const (
	// DefaultConnectionTimeout is the default Connect reply timeout.
	DefaultConnectionTimeout = 10 * time.Second

	// DefaultDisconnectTimeout is the fixed Disconnect reply timeout.
	DefaultDisconnectTimeout = 5 * time.Second

	// DefaultPairTimeout is the fixed Pair reply timeout.
	DefaultPairTimeout = 30 * time.Second

	// DefaultPropertyTimeout is the fixed Trust/Block/Unpair reply timeout.
	DefaultPropertyTimeout = 5 * time.Second

	// DefaultPumpBudget is the bounded drain window the Dispatcher gives
	// the Bus Client on each iteration of its loop (spec.md §4.A/§5).
	DefaultPumpBudget = 10 * time.Millisecond
)

// DeviceManager holds the recognized creation-time options for a Device
// Manager (spec.md §6).
type DeviceManager struct {
	// ScanDuration bounds a discovery session; zero means continuous
	// (stop-discovery must be called explicitly).
	ScanDuration time.Duration

	// FilterDuplicates is accepted but not read: the Device Manager always
	// suppresses repeat discovered callbacks for an address, whatever its
	// value (spec.md §4.D). It is kept as an explicit option since the
	// host may rely on its presence.
	FilterDuplicates bool

	// Sink receives discovery, scan-status and error callbacks. A nil
	// Sink is replaced with bluetooth.NilDiscoverySink.
	Sink bluetooth.DiscoverySink
}

// ConnectionManager holds the recognized creation-time options for a
// Connection Manager (spec.md §6).
type ConnectionManager struct {
	// ConnectionTimeout overrides DefaultConnectionTimeout when non-zero.
	ConnectionTimeout time.Duration

	// AutoReconnect enables the one-shot reconnect of spec.md §4.E.
	AutoReconnect bool

	// AutoTrust enables the trailing Set(Trusted=true) after a
	// successful Pair (spec.md §8 scenario 6).
	AutoTrust bool

	// Sink receives state and pairing callbacks. A nil Sink is replaced
	// with bluetooth.NilConnectionSink.
	Sink bluetooth.ConnectionSink
}

// ConnectTimeout returns ConnectionTimeout, defaulting it when zero.
func (c ConnectionManager) ConnectTimeout() time.Duration {
	if c.ConnectionTimeout <= 0 {
		return DefaultConnectionTimeout
	}

	return c.ConnectionTimeout
}
