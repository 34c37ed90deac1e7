package bluetooth

// DeviceKind classifies a remote device by its class-of-device bits. Derived
// from the teacher's DeviceTypeFromClass (api/bluetooth/device.go), but
// narrowed to the closed kind set this spec defines — the teacher resolves
// finer categories (speakers, headphones, printers, ...) that have no
// corresponding kind here.
type DeviceKind string

// The closed set of device kinds.
const (
	KindUnknown     DeviceKind = "unknown"
	KindAudioSink   DeviceKind = "audio-sink"
	KindAudioSource DeviceKind = "audio-source"
	KindInput       DeviceKind = "input"
	KindKeyboard    DeviceKind = "keyboard"
	KindMouse       DeviceKind = "mouse"
	KindPhone       DeviceKind = "phone"
	KindComputer    DeviceKind = "computer"
)

// majorClass and minorClass extract the major (bits 8-12) and minor
// (bits 2-7) class fields out of a 24-bit class-of-device integer.
func majorClass(class uint32) uint32 {
	return (class >> 8) & 0x1f
}

func minorClass(class uint32) uint32 {
	return (class >> 2) & 0x3f
}

// DeviceKindFromClass derives a DeviceKind from a 24-bit class-of-device
// integer. The result depends only on bits 2-12, per spec.
func DeviceKindFromClass(class uint32) DeviceKind {
	major := majorClass(class)
	minor := minorClass(class)

	switch major {
	case 0x01:
		return KindComputer

	case 0x02:
		return KindPhone

	case 0x04:
		switch minor {
		case 0x03:
			return KindAudioSource
		default:
			return KindAudioSink
		}

	case 0x05:
		switch minor {
		case 0x01, 0x03:
			return KindKeyboard
		case 0x02:
			return KindMouse
		default:
			return KindInput
		}

	default:
		return KindUnknown
	}
}
