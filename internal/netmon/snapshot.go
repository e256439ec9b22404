package netmon

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
)

// Record is one raw interface as returned by a Source.
type Record struct {
	Name string
	// Description is the adapter's descriptive name where the OS has one
	// (Windows). Empty elsewhere.
	Description  string
	Index        int
	HardwareAddr net.HardwareAddr
	Addrs        []netip.Addr
}

// Snapshot is the reportable state of a single VPN interface.
type Snapshot struct {
	Name  string
	Addr  netip.Addr
	Index int
}

// Same reports whether s and o represent the same reported state. Index is
// informational only: none of the sources renumber an interface without also
// changing its address or name.
func (s Snapshot) Same(o Snapshot) bool {
	return s.Name == o.Name && s.Addr == o.Addr
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s=%s", s.Name, s.Addr)
}

type snapshotJSON struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Index   int    `json:"index"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Name:    s.Name,
		Address: s.Addr.String(),
		Index:   s.Index,
	})
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var v snapshotJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	addr, err := netip.ParseAddr(v.Address)
	if err != nil {
		return fmt.Errorf("snapshot address: %w", err)
	}
	*s = Snapshot{Name: v.Name, Addr: addr, Index: v.Index}
	return nil
}
