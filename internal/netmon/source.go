package netmon

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

// ErrSourceUnavailable marks an enumeration failure that will not go away by
// retrying, e.g. the platform has no way to list interfaces.
var ErrSourceUnavailable = errors.New("interface source unavailable")

// Source lists the host's network interfaces.
type Source interface {
	// List returns the interfaces currently present. An empty result is valid.
	List(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Record, error)

func (f SourceFunc) List(ctx context.Context) ([]Record, error) { return f(ctx) }

// EnumerationError is returned when the interface list could not be read.
type EnumerationError struct {
	Op  string
	Err error
}

func (e *EnumerationError) Error() string {
	return "enumerate interfaces: " + e.Op + ": " + e.Err.Error()
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// Permanent reports whether retrying cannot help.
func (e *EnumerationError) Permanent() bool {
	return errors.Is(e.Err, ErrSourceUnavailable)
}

// addrsFromNet converts the net package's address list, dropping anything that
// is not an IP network.
func addrsFromNet(addrs []net.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(ipNet.IP); ok {
			out = append(out, ip.Unmap())
		}
	}
	return out
}
