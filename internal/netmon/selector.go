package netmon

import (
	"net/netip"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Matcher decides whether a record looks like a VPN interface.
type Matcher func(Record) bool

// NamePrefix matches records whose name starts with any of the prefixes.
func NamePrefix(prefixes ...string) Matcher {
	return func(r Record) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(r.Name, p) {
				return true
			}
		}
		return false
	}
}

// DescriptionContains matches records whose adapter description, or name when
// the OS has no description, contains any of the substrings.
func DescriptionContains(substrs ...string) Matcher {
	return func(r Record) bool {
		text := r.Description
		if text == "" {
			text = r.Name
		}
		for _, s := range substrs {
			if s != "" && strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// AnyOf matches when at least one matcher does.
func AnyOf(matchers ...Matcher) Matcher {
	return func(r Record) bool {
		for _, m := range matchers {
			if m != nil && m(r) {
				return true
			}
		}
		return false
	}
}

const (
	DefaultTunnelPrefix      = "tun"
	DefaultWindowsAdapterTag = "OpenVPN TAP"
)

// Selector narrows an interface list down to VPN candidates.
type Selector struct {
	match Matcher
}

func NewSelector(match Matcher) *Selector {
	return &Selector{match: match}
}

// DefaultSelector returns the naming convention used on goos.
func DefaultSelector(goos string) *Selector {
	if goos == "windows" {
		return NewSelector(DescriptionContains(DefaultWindowsAdapterTag))
	}
	return NewSelector(NamePrefix(DefaultTunnelPrefix))
}

// Select returns one snapshot per matching record that carries an IPv4
// address, in enumeration order.
func (s *Selector) Select(records []Record) []Snapshot {
	var out []Snapshot
	for _, r := range records {
		if s.match == nil || !s.match(r) {
			continue
		}

		addr, ok := lowestIPv4(r.Addrs)
		if !ok {
			log.WithField("interface", r.Name).Trace("Skipping VPN interface without IPv4 address")
			continue
		}

		out = append(out, Snapshot{Name: r.Name, Addr: addr, Index: r.Index})
	}
	return out
}

func lowestIPv4(addrs []netip.Addr) (netip.Addr, bool) {
	var best netip.Addr
	found := false
	for _, a := range addrs {
		a = a.Unmap()
		if !a.Is4() {
			continue
		}
		if !found || a.Less(best) {
			best = a
			found = true
		}
	}
	return best, found
}

// PlatformSelector is DefaultSelector for the running OS.
func PlatformSelector() *Selector {
	return DefaultSelector(runtime.GOOS)
}
