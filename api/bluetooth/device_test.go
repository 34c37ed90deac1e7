package bluetooth

import "testing"

func TestResolveAlias(t *testing.T) {
	addr, err := ParseMAC("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("ParseMAC unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		alias   string
		devName string
		want    string
	}{
		{"alias wins", "My Phone", "Pixel 8", "My Phone"},
		{"falls back to name", "", "Pixel 8", "Pixel 8"},
		{"falls back to address", "", "", "AA:BB:CC:DD:EE:FF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAlias(tt.alias, tt.devName, addr); got != tt.want {
				t.Errorf("ResolveAlias(%q, %q, ..) = %q, want %q", tt.alias, tt.devName, got, tt.want)
			}
		})
	}
}

func TestDeviceDeriveKind(t *testing.T) {
	d := Device{Class: 0x000200}
	d.DeriveKind()

	if d.Kind != KindPhone {
		t.Errorf("DeriveKind() = %q, want %q", d.Kind, KindPhone)
	}
}
