// Package errorkinds defines the closed error taxonomy that every public
// bluecore operation returns, and a helper to carry a Kind alongside a
// fault-wrapped cause.
package errorkinds

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

// Kind identifies one of the closed set of error categories a public
// bluecore operation can return.
type Kind string

// The closed set of error kinds.
const (
	KindInvalidArgument Kind = "invalid-argument"
	KindOutOfMemory     Kind = "out-of-memory"
	KindBusError        Kind = "bus-error"
	KindDaemonError     Kind = "daemon-error"
	KindThreadError     Kind = "thread-error"
	KindIPCError        Kind = "ipc-error"
	KindNoDevice        Kind = "no-device"
	KindConnectionFailed Kind = "connection-failed"
	KindPairingFailed   Kind = "pairing-failed"
)

// Sentinel causes, wrapped with a Kind via New before leaving the package.
var (
	ErrInvalidAddress  = errors.New("invalid Bluetooth address")
	ErrAdapterNotFound = errors.New("adapter not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrNoAdapter       = errors.New("no adapter available")
	ErrBusUnavailable  = errors.New("system bus unavailable")
	ErrDispatcherStart = errors.New("dispatcher thread failed to start")
)

// Error is a Kind-tagged error. Its Unwrap lets callers errors.Is/As through
// to the wrapped cause (typically a *fault.Error produced by the fault
// package) without losing the Kind.
type Error struct {
	Kind  Kind
	Cause error
}

// Error returns the formatted error as a string.
func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}

	return string(e.Kind) + ": " + e.Cause.Error()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns a new Kind-tagged error.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// ClassifyBusError distinguishes the two bus-call failure kinds spec.md §7
// defines: KindDaemonError when cause is a dbus.Error (the daemon
// replied with an Error message, carrying its error name), KindBusError
// for anything else (a transport or protocol failure with no daemon
// reply at all).
func ClassifyBusError(cause error) Kind {
	var daemonErr dbus.Error
	if errors.As(cause, &daemonErr) {
		return KindDaemonError
	}

	return KindBusError
}

// Is reports whether err is a bluecore error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error

	for err != nil {
		if ek, ok := err.(*Error); ok {
			e = ek

			break
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return e != nil && e.Kind == kind
}
