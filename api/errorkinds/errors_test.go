package errorkinds

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"with cause", New(KindBusError, errors.New("boom")), "bus-error: boom"},
		{"without cause", New(KindNoDevice, nil), "no-device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	base := New(KindConnectionFailed, errors.New("timeout"))
	wrapped := fmt.Errorf("connect: %w", base)

	if !Is(wrapped, KindConnectionFailed) {
		t.Error("Is(wrapped, KindConnectionFailed) = false, want true")
	}

	if Is(wrapped, KindPairingFailed) {
		t.Error("Is(wrapped, KindPairingFailed) = true, want false")
	}
}

func TestIsOnPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindBusError) {
		t.Error("Is(plain error, ...) = true, want false")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := New(KindIPCError, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}
