package tracker

import "github.com/ipreport/vpn-ip-tracker/internal/netmon"

// State is everything the tracker remembers between cycles.
type State struct {
	// LastReported is the last snapshot the endpoint acknowledged, nil before
	// the first successful report.
	LastReported *netmon.Snapshot
}

// Detector decides whether a candidate is worth reporting. It is owned by a
// single Monitor and is not safe for concurrent use.
type Detector struct {
	state State
}

func NewDetector() *Detector {
	return &Detector{}
}

// IsChange is true when nothing has been reported yet or c differs from the
// last reported snapshot.
func (d *Detector) IsChange(c netmon.Snapshot) bool {
	return d.state.LastReported == nil || !d.state.LastReported.Same(c)
}

// Commit records c as reported. Call it only after the endpoint accepted c.
func (d *Detector) Commit(c netmon.Snapshot) {
	d.state.LastReported = &c
}

func (d *Detector) LastReported() (netmon.Snapshot, bool) {
	if d.state.LastReported == nil {
		return netmon.Snapshot{}, false
	}
	return *d.state.LastReported, true
}
