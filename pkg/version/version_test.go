package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	tests := []struct {
		version string
		want    string
	}{
		{"1.2.3", "vpn-ip-tracker/1.2.3"},
		{"v0.4.0", "vpn-ip-tracker/0.4.0"},
		{"2.0.0-rc.1", "vpn-ip-tracker/2.0.0-rc.1"},
		{"dev", "vpn-ip-tracker/0.0.0-dev"},
		{"my build", "vpn-ip-tracker/0.0.0-my-build"},
		{"", "vpn-ip-tracker/0.0.0-unknown"},
	}

	for _, tt := range tests {
		Version = tt.version
		assert.Equal(t, tt.want, UserAgent(), "version %q", tt.version)
	}
}
