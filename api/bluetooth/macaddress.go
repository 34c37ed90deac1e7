package bluetooth

// Adapted from the MAC address parser used by the teacher's DBus backend
// (itself taken from tinygo-org/bluetooth's mac.go), generalized here to
// also satisfy go-codec's TextMarshaler/TextUnmarshaler extension so a
// MacAddress can be decoded directly out of a dbus property dictionary.

import (
	"bytes"

	"github.com/bluecore-project/bluecore/api/errorkinds"
)

// MacAddress represents a canonical Bluetooth address.
type MacAddress [NumAddressBytes]byte

const (
	// MaxAddressStringLength is the length of a canonical address string.
	MaxAddressStringLength = 17

	// NumAddressBytes is the number of octets in a MacAddress.
	NumAddressBytes = 6
)

// ParseMAC parses s, which must be in "XX:XX:XX:XX:XX:XX" form (case
// insensitive). The zero value is returned alongside errorkinds.ErrInvalidAddress
// on failure.
func ParseMAC(s string) (MacAddress, error) {
	return parseMacFromBuffer(bytes.NewBufferString(s))
}

// String returns the canonical, uppercase, colon-separated representation.
func (m MacAddress) String() string {
	return m.byteBuffer().String()
}

// IsZero reports whether every octet of the address is zero.
func (m MacAddress) IsZero() bool {
	for _, b := range m {
		if b != 0 {
			return false
		}
	}

	return true
}

// MarshalText implements encoding.TextMarshaler.
func (m MacAddress) MarshalText() ([]byte, error) {
	return m.byteBuffer().Bytes(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the go-codec
// variant decoder to populate a MacAddress field directly from a dbus
// "Address" property string.
func (m *MacAddress) UnmarshalText(data []byte) error {
	mac, err := parseMacFromBuffer(bytes.NewBuffer(data))
	if err != nil {
		return err
	}

	*m = mac

	return nil
}

func (m MacAddress) byteBuffer() *bytes.Buffer {
	buf := bytes.NewBuffer(make([]byte, 0, MaxAddressStringLength))

	for i := 5; i >= 0; i-- {
		c := m[i]

		if i != 5 {
			buf.WriteByte(':')
		}

		buf.WriteByte(hexDigit(c >> 4))
		buf.WriteByte(hexDigit(c & 0x0f))
	}

	return buf
}

func hexDigit(nibble byte) byte {
	if nibble <= 9 {
		return nibble + '0'
	}

	return nibble + 'A' - 10
}

// parseMacFromBuffer reads six colon-separated two-hex-digit groups, most
// significant group first (m[5]), matching the order byteBuffer prints.
func parseMacFromBuffer(b *bytes.Buffer) (MacAddress, error) {
	var mac MacAddress

	for i := 5; i >= 0; i-- {
		high, err := nextNibble(b)
		if err != nil {
			return MacAddress{}, errorkinds.ErrInvalidAddress
		}

		low, err := nextNibble(b)
		if err != nil {
			return MacAddress{}, errorkinds.ErrInvalidAddress
		}

		mac[i] = high<<4 | low

		if i > 0 {
			sep, err := b.ReadByte()
			if err != nil || sep != ':' {
				return MacAddress{}, errorkinds.ErrInvalidAddress
			}
		}
	}

	if b.Len() != 0 {
		return MacAddress{}, errorkinds.ErrInvalidAddress
	}

	return mac, nil
}

func nextNibble(b *bytes.Buffer) (byte, error) {
	c, err := b.ReadByte()
	if err != nil {
		return 0, err
	}

	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0xA, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 0xA, nil
	default:
		return 0, errorkinds.ErrInvalidAddress
	}
}
