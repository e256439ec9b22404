package tracker

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipreport/vpn-ip-tracker/internal/netmon"
)

func snap(name, addr string) netmon.Snapshot {
	return netmon.Snapshot{Name: name, Addr: netip.MustParseAddr(addr)}
}

func TestDetector_FirstCandidateIsChange(t *testing.T) {
	d := NewDetector()

	_, ok := d.LastReported()
	assert.False(t, ok)
	assert.True(t, d.IsChange(snap("tun0", "10.0.0.1")))
}

func TestDetector_SameCandidateIsNotChange(t *testing.T) {
	d := NewDetector()
	d.Commit(snap("tun0", "10.0.0.1"))

	for i := 0; i < 5; i++ {
		assert.False(t, d.IsChange(snap("tun0", "10.0.0.1")))
	}
}

func TestDetector_IndexDoesNotMatter(t *testing.T) {
	d := NewDetector()
	a := snap("tun0", "10.0.0.1")
	a.Index = 3
	d.Commit(a)

	b := a
	b.Index = 8
	assert.False(t, d.IsChange(b))
}

func TestDetector_AddressOrNameChange(t *testing.T) {
	d := NewDetector()
	d.Commit(snap("tun0", "10.0.0.1"))

	assert.True(t, d.IsChange(snap("tun0", "10.0.0.2")))
	assert.True(t, d.IsChange(snap("tun1", "10.0.0.1")))
}

func TestDetector_CommitReplaces(t *testing.T) {
	d := NewDetector()
	d.Commit(snap("tun0", "10.0.0.1"))
	d.Commit(snap("tun0", "10.0.0.9"))

	got, ok := d.LastReported()
	assert.True(t, ok)
	assert.Equal(t, snap("tun0", "10.0.0.9"), got)
}

func TestDetector_CommitCopiesValue(t *testing.T) {
	d := NewDetector()
	c := snap("tun0", "10.0.0.1")
	d.Commit(c)
	c.Name = "mutated"

	got, _ := d.LastReported()
	assert.Equal(t, "tun0", got.Name)
}
