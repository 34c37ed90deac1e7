// Package dispatcher owns the single goroutine that parses BlueZ DBus
// signals into the five tagged event kinds spec.md §9's design notes
// name, and publishes each onto api/eventbus for the Device Manager and
// Connection Manager to consume with their own subscriber goroutines.
//
// Grounded on the teacher's linux/session.go parseSignalData, which
// switches on PropertiesChanged/InterfacesAdded/InterfacesRemoved inline
// and mutates the session store directly from the signal-watching
// goroutine. bluecore separates parsing from mutation: the Dispatcher
// only parses and publishes, it never touches a manager's cache (spec.md
// §5 "the Dispatcher holds no manager lock").
package dispatcher

import (
	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

// Event is the sum type of everything a Dispatcher can publish. Each
// concrete type below implements it with an unexported marker method so
// the set is closed to this package.
type Event interface {
	isEvent()
}

// DeviceAdded fires for every InterfacesAdded signal that carries
// org.bluez.Device1 with a non-zero address, so the same address can
// arrive more than once; the Device Manager deduplicates. Variants carries the raw
// property dict alongside the decoded Device so a merge onto an
// already-known device can tell an absent key from one explicitly
// decoded to its zero value.
type DeviceAdded struct {
	AdapterIndex int
	Device       bluetooth.Device
	Variants     map[string]dbus.Variant
}

// DevicePropertyChanged fires from a PropertiesChanged signal on a device
// path, carrying only the properties present in the signal (spec.md §4.D
// merge semantics are applied by the receiving manager).
type DevicePropertyChanged struct {
	Address   bluetooth.MacAddress
	Variants  map[string]dbus.Variant
}

// DeviceRemoved fires from an InterfacesRemoved signal naming
// org.bluez.Device1.
type DeviceRemoved struct {
	Address bluetooth.MacAddress
}

// AdapterFound fires for every InterfacesAdded signal that carries
// org.bluez.Adapter1 on an /org/bluez/hciN path.
type AdapterFound struct {
	AdapterIndex int
	Path         dbus.ObjectPath
}

// AdapterRemoved fires from an InterfacesRemoved signal naming
// org.bluez.Adapter1.
type AdapterRemoved struct {
	AdapterIndex int
	Path         dbus.ObjectPath
}

func (DeviceAdded) isEvent() {}
func (DevicePropertyChanged) isEvent() {}
func (DeviceRemoved) isEvent() {}
func (AdapterFound) isEvent() {}
func (AdapterRemoved) isEvent() {}
