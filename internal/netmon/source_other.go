//go:build !linux && !windows

package netmon

import (
	"context"
	"net"

	log "github.com/sirupsen/logrus"
)

type netSource struct {
	interfaces func() ([]net.Interface, error)
}

// NewSource returns a source backed by the net package's routing-socket
// enumeration. Identity: BSD interface names are unique per host, so Index is
// not part of snapshot equality.
func NewSource() Source {
	return netSource{interfaces: net.Interfaces}
}

func (s netSource) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ifaces, err := s.interfaces()
	if err != nil {
		return nil, &EnumerationError{Op: "interfaces", Err: err}
	}

	records := make([]Record, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			log.WithError(err).WithField("interface", iface.Name).Trace("Failed to list interface addresses")
			continue
		}
		records = append(records, Record{
			Name:         iface.Name,
			Index:        iface.Index,
			HardwareAddr: iface.HardwareAddr,
			Addrs:        addrsFromNet(addrs),
		})
	}

	return records, nil
}
