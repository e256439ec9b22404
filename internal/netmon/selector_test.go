package netmon

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrs(t *testing.T, ss ...string) []netip.Addr {
	t.Helper()
	out := make([]netip.Addr, 0, len(ss))
	for _, s := range ss {
		out = append(out, netip.MustParseAddr(s))
	}
	return out
}

func TestSelector_LowestIPv4Wins(t *testing.T) {
	sel := DefaultSelector("linux")

	for i := 0; i < 10; i++ {
		got := sel.Select([]Record{{Name: "tun0", Index: 7, Addrs: addrs(t, "10.0.0.5", "10.0.0.2")}})
		require.Len(t, got, 1)
		assert.Equal(t, netip.MustParseAddr("10.0.0.2"), got[0].Addr)
		assert.Equal(t, 7, got[0].Index)
	}
}

func TestSelector_NameFilter(t *testing.T) {
	sel := DefaultSelector("linux")

	got := sel.Select([]Record{
		{Name: "eth0", Addrs: addrs(t, "192.168.0.10")},
		{Name: "tun0", Addrs: addrs(t, "fe80::1", "2001:db8::1")},
		{Name: "tun1", Addrs: addrs(t, "192.168.1.1")},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "tun1", got[0].Name)
	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), got[0].Addr)
}

func TestSelector_IPv6IgnoredForTieBreak(t *testing.T) {
	sel := DefaultSelector("darwin")

	got := sel.Select([]Record{{Name: "tun3", Addrs: addrs(t, "::1", "10.8.0.6")}})
	require.Len(t, got, 1)
	assert.Equal(t, "10.8.0.6", got[0].Addr.String())
}

func TestSelector_MappedIPv4Accepted(t *testing.T) {
	sel := DefaultSelector("linux")

	got := sel.Select([]Record{{Name: "tun0", Addrs: addrs(t, "::ffff:10.1.2.3")}})
	require.Len(t, got, 1)
	assert.True(t, got[0].Addr.Is4())
	assert.Equal(t, "10.1.2.3", got[0].Addr.String())
}

func TestSelector_PreservesEnumerationOrder(t *testing.T) {
	sel := DefaultSelector("linux")

	got := sel.Select([]Record{
		{Name: "tun1", Addrs: addrs(t, "5.6.7.8")},
		{Name: "lo", Addrs: addrs(t, "127.0.0.1")},
		{Name: "tun0", Addrs: addrs(t, "1.2.3.4")},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "tun1", got[0].Name)
	assert.Equal(t, "tun0", got[1].Name)
}

func TestSelector_EmptyInput(t *testing.T) {
	assert.Empty(t, DefaultSelector("linux").Select(nil))
}

func TestSelector_WindowsDescription(t *testing.T) {
	sel := DefaultSelector("windows")

	got := sel.Select([]Record{
		{Name: "Ethernet", Description: "Intel(R) Ethernet Connection", Addrs: addrs(t, "192.168.0.2")},
		{Name: "Ethernet 2", Description: "TAP-Windows Adapter V9 for OpenVPN TAP", Addrs: addrs(t, "10.8.0.2")},
		{Name: "tun0", Addrs: addrs(t, "10.9.0.2")},
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Ethernet 2", got[0].Name)
}

func TestDescriptionContains_FallsBackToName(t *testing.T) {
	m := DescriptionContains("OpenVPN TAP")
	assert.True(t, m(Record{Name: "OpenVPN TAP-Windows6"}))
	assert.False(t, m(Record{Name: "OpenVPN TAP-Windows6", Description: "Wi-Fi"}))
}

func TestNamePrefix_Multiple(t *testing.T) {
	m := NamePrefix("tun", "wg", "")
	assert.True(t, m(Record{Name: "wg0"}))
	assert.True(t, m(Record{Name: "tun7"}))
	assert.False(t, m(Record{Name: "eth0"}))
	assert.False(t, m(Record{Name: ""}))
}

func TestAnyOf(t *testing.T) {
	m := AnyOf(nil, NamePrefix("utun"), DescriptionContains("WireGuard"))
	assert.True(t, m(Record{Name: "utun3"}))
	assert.True(t, m(Record{Name: "wg", Description: "WireGuard Tunnel"}))
	assert.False(t, m(Record{Name: "en0"}))
}

func TestSelector_NilMatcherSelectsNothing(t *testing.T) {
	sel := NewSelector(nil)
	assert.Empty(t, sel.Select([]Record{{Name: "tun0", Addrs: addrs(t, "10.0.0.1")}}))
}
