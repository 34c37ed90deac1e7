package dbushelper

// PathOf/AddressOf implement the object-path codec of spec.md §4.B as pure
// functions, adapted out of the teacher's linux/internal/dbushelper
// pathconverter.go (which instead couples path<->address mapping into a
// process-wide cache). The cache role is kept separately, nearer its one
// legitimate use (connectionmanager's path-resolution memo), since
// spec.md §4.B wants conversion with no side effects.

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/godbus/dbus/v5"
)

const devicePathPrefix = "dev_"

// PathOf synthesizes the object path BlueZ would export for address under
// adapter hciN, e.g. PathOf(0, addr) => "/org/bluez/hci0/dev_AA_BB_..._FF".
func PathOf(adapterIndex int, address bluetooth.MacAddress) dbus.ObjectPath {
	escaped := strings.ReplaceAll(address.String(), ":", "_")

	return dbus.ObjectPath("/org/bluez/hci" + strconv.Itoa(adapterIndex) + "/" + devicePathPrefix + escaped)
}

// AddressOf extracts the Bluetooth address encoded in a device object
// path's trailing "dev_..." segment. The second return is false if the
// segment is absent or does not decode to a valid canonical address.
func AddressOf(path dbus.ObjectPath) (bluetooth.MacAddress, bool) {
	segment := filepath.Base(string(path))

	if !strings.HasPrefix(segment, devicePathPrefix) {
		return bluetooth.MacAddress{}, false
	}

	addrString := strings.ReplaceAll(strings.TrimPrefix(segment, devicePathPrefix), "_", ":")
	if len(addrString) != bluetooth.MaxAddressStringLength {
		return bluetooth.MacAddress{}, false
	}

	address, err := bluetooth.ParseMAC(addrString)
	if err != nil {
		return bluetooth.MacAddress{}, false
	}

	return address, true
}

// AdapterPathOf synthesizes the object path for adapter index N.
func AdapterPathOf(adapterIndex int) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/hci" + strconv.Itoa(adapterIndex))
}

// AdapterIndexOf extracts N from a path of the form /org/bluez/hciN.
func AdapterIndexOf(path dbus.ObjectPath) (int, bool) {
	segment := filepath.Base(string(path))
	if !strings.HasPrefix(segment, "hci") {
		return 0, false
	}

	index, err := strconv.Atoi(strings.TrimPrefix(segment, "hci"))
	if err != nil {
		return 0, false
	}

	return index, true
}
