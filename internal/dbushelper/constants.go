// Package dbushelper holds the BlueZ-specific DBus names, the object-path
// codec, and the variant decoder shared by busclient, dispatcher,
// devicemanager and connectionmanager. Adapted from the teacher's
// linux/internal/dbushelper package.
package dbushelper

import "github.com/godbus/dbus/v5"

// The DBus and BlueZ interface/member names this module calls or matches.
const (
	DbusObjectManagerIface    = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	DbusGetAllPropertiesIface = "org.freedesktop.DBus.Properties.GetAll"
	DbusSetPropertiesIface    = "org.freedesktop.DBus.Properties.Set"

	DbusSignalAddMatchIface          = "org.freedesktop.DBus.AddMatch"
	DbusSignalPropertyChangedIface   = "org.freedesktop.DBus.Properties.PropertiesChanged"
	DbusSignalInterfacesAddedIface   = "org.freedesktop.DBus.ObjectManager.InterfacesAdded"
	DbusSignalInterfacesRemovedIface = "org.freedesktop.DBus.ObjectManager.InterfacesRemoved"

	BluezBusName      = "org.bluez"
	BluezRootPath     = dbus.ObjectPath("/")
	BluezAdapterIface = "org.bluez.Adapter1"
	BluezDeviceIface  = "org.bluez.Device1"
)

// BluezSignalMatch is the single match rule installed at creation
// (spec.md §4.A): every signal from org.bluez, any path, which covers
// property changes and object-manager additions and removals. The daemon's object-manager advertises
// InterfacesAdded on the root path, so no path= clause is added there;
// PropertiesChanged is filtered defensively in the parse step rather than
// the match rule itself (spec.md §9 — arg0= over-matching bug fix).
const BluezSignalMatch = "type='signal',sender='org.bluez'"
