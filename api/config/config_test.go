package config

import (
	"testing"
	"time"
)

func TestConnectTimeoutDefaulting(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConnectionManager
		want time.Duration
	}{
		{"zero uses default", ConnectionManager{}, DefaultConnectionTimeout},
		{"negative uses default", ConnectionManager{ConnectionTimeout: -1}, DefaultConnectionTimeout},
		{"explicit value kept", ConnectionManager{ConnectionTimeout: 2 * time.Second}, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnectTimeout(); got != tt.want {
				t.Errorf("ConnectTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
