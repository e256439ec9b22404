//go:build windows

package netmon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/windows"
)

type windowsSource struct{}

// NewSource returns the Windows interface source. It reads the adapter table
// directly because the net package drops the adapter description, which is
// what identifies a TAP adapter. Identity: friendly names are unique per host,
// so Index is not part of snapshot equality.
func NewSource() Source {
	return windowsSource{}
}

func (windowsSource) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aas, err := adapterAddresses()
	if err != nil {
		return nil, &EnumerationError{Op: "GetAdaptersAddresses", Err: err}
	}

	var records []Record
	for _, aa := range aas {
		rec := Record{
			Name:        windows.UTF16PtrToString(aa.FriendlyName),
			Description: windows.UTF16PtrToString(aa.Description),
			Index:       int(aa.IfIndex),
		}
		if aa.IfIndex == 0 {
			rec.Index = int(aa.Ipv6IfIndex)
		}
		if aa.PhysicalAddressLength > 0 {
			rec.HardwareAddr = net.HardwareAddr(append([]byte(nil), aa.PhysicalAddress[:aa.PhysicalAddressLength]...))
		}
		for ua := aa.FirstUnicastAddress; ua != nil; ua = ua.Next {
			if ip, ok := netip.AddrFromSlice(ua.Address.IP()); ok {
				rec.Addrs = append(rec.Addrs, ip.Unmap())
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func adapterAddresses() ([]*windows.IpAdapterAddresses, error) {
	var b []byte
	l := uint32(15000) // recommended initial size
	for {
		b = make([]byte, l)
		err := windows.GetAdaptersAddresses(windows.AF_UNSPEC, windows.GAA_FLAG_INCLUDE_PREFIX, 0, (*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])), &l)
		if err == nil {
			if l == 0 {
				return nil, nil
			}
			break
		}
		if errors.Is(err, windows.ERROR_NOT_SUPPORTED) {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		if !errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) {
			return nil, err
		}
		if l <= uint32(len(b)) {
			return nil, err
		}
	}

	var aas []*windows.IpAdapterAddresses
	for aa := (*windows.IpAdapterAddresses)(unsafe.Pointer(&b[0])); aa != nil; aa = aa.Next {
		aas = append(aas, aa)
	}
	return aas, nil
}
