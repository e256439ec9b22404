//go:build linux

package netmon

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

type linuxSource struct{}

// NewSource returns the Linux interface source, backed by rtnetlink.
// Identity: kernel interface names are unique, so Index is not needed for
// snapshot equality.
func NewSource() Source {
	return linuxSource{}
}

func (linuxSource) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	links, err := netlink.LinkList()
	if err != nil {
		if errors.Is(err, unix.EAFNOSUPPORT) || errors.Is(err, unix.EPROTONOSUPPORT) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, &EnumerationError{Op: "link list", Err: err}
	}

	records := make([]Record, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			// The link can vanish between the two dumps.
			log.WithError(err).WithField("interface", attrs.Name).Trace("Failed to list interface addresses")
			continue
		}

		rec := Record{
			Name:         attrs.Name,
			Index:        attrs.Index,
			HardwareAddr: attrs.HardwareAddr,
			Addrs:        make([]netip.Addr, 0, len(addrs)),
		}
		for _, a := range addrs {
			if a.IPNet == nil {
				continue
			}
			if ip, ok := netip.AddrFromSlice(a.IPNet.IP); ok {
				rec.Addrs = append(rec.Addrs, ip.Unmap())
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
