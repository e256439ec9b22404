package version

import (
	"fmt"

	"github.com/Masterminds/semver"
)

const Name = "vpn-ip-tracker"

var (
	// Version contains the current version of vpn-ip-tracker
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"
)

// UserAgent identifies the agent to the report endpoint. Builds without a
// semantic version (e.g. "dev") report 0.0.0 with the raw value as prerelease.
func UserAgent() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Sprintf("%s/0.0.0-%s", Name, sanitize(Version))
	}
	return fmt.Sprintf("%s/%s", Name, v.String())
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return string(out)
}
