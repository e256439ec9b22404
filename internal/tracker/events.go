package tracker

import (
	"time"

	"github.com/ipreport/vpn-ip-tracker/internal/netmon"
)

type EventType string

const (
	ReportSucceeded   EventType = "REPORT_SUCCEEDED"
	ReportFailed      EventType = "REPORT_FAILED"
	EnumerationFailed EventType = "ENUMERATION_FAILED"
)

type Event struct {
	Type     EventType        `json:"type"`
	Time     time.Time        `json:"time"`
	Snapshot *netmon.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Phase is Idle until the first successful report, Tracking afterwards.
type Phase string

const (
	Idle     Phase = "idle"
	Tracking Phase = "tracking"
)

// Status is a point-in-time copy of the monitor's progress, safe to hand to
// other goroutines.
type Status struct {
	Phase                   Phase            `json:"phase"`
	LastReported            *netmon.Snapshot `json:"lastReported,omitempty"`
	LastReportedAt          *time.Time       `json:"lastReportedAt,omitempty"`
	LastError               string           `json:"lastError,omitempty"`
	LastCycleAt             *time.Time       `json:"lastCycleAt,omitempty"`
	Cycles                  uint64           `json:"cycles"`
	Reports                 uint64           `json:"reports"`
	ReportFailures          uint64           `json:"reportFailures"`
	EnumerationFailures     uint64           `json:"enumerationFailures"`
	ConsecutiveEnumFailures int              `json:"consecutiveEnumerationFailures"`
}

// Ready reports whether at least one cycle has completed.
func (s Status) Ready() bool { return s.Cycles > 0 }
