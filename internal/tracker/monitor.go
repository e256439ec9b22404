package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ipreport/vpn-ip-tracker/internal/config"
	"github.com/ipreport/vpn-ip-tracker/internal/netmon"
	"github.com/ipreport/vpn-ip-tracker/internal/report"
	"github.com/ipreport/vpn-ip-tracker/internal/runtime"
)

const (
	DefaultInterval = 30 * time.Second

	subscriberBacklog = 64
)

// Reporter delivers a snapshot to the report endpoint.
type Reporter interface {
	Report(ctx context.Context, snap netmon.Snapshot) error
}

// Monitor polls the interface source and reports VPN address changes.
type Monitor struct {
	source          netmon.Source
	selector        *netmon.Selector
	reporter        Reporter
	detector        *Detector
	interval        time.Duration
	maxEnumFailures int
	now             func() time.Time

	consecutiveEnumFailures int

	statusMu sync.RWMutex
	status   Status

	// subsMu also guards lastEvent so a new subscriber is primed with exactly
	// the event published before it registered.
	subsMu           sync.Mutex
	subs             map[int]*runtime.SubQueue[Event]
	nextSubscriberID int
	lastEvent        *Event
	closed           bool
}

type Option func(*Monitor)

// WithSelector overrides the platform's VPN naming convention.
func WithSelector(s *netmon.Selector) Option {
	return func(m *Monitor) { m.selector = s }
}

// WithReporter replaces the HTTP reporter built from the config.
func WithReporter(r Reporter) Option {
	return func(m *Monitor) { m.reporter = r }
}

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMaxEnumerationFailures makes Run give up after n consecutive failed
// enumerations. Zero, the default, retries forever.
func WithMaxEnumerationFailures(n int) Option {
	return func(m *Monitor) { m.maxEnumFailures = n }
}

// New validates cfg and builds a Monitor. An invalid cfg never reaches the
// reporter.
func New(cfg config.Config, src netmon.Source, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("tracker: nil interface source")
	}

	m := &Monitor{
		source:   src,
		selector: netmon.PlatformSelector(),
		detector: NewDetector(),
		interval: DefaultInterval,
		now:      time.Now,
		status:   Status{Phase: Idle},
		subs:     make(map[int]*runtime.SubQueue[Event]),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.reporter == nil {
		r, err := report.New(cfg)
		if err != nil {
			return nil, err
		}
		m.reporter = r
	}
	return m, nil
}

// Run builds a Monitor and runs it until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, src netmon.Source, opts ...Option) error {
	m, err := New(cfg, src, opts...)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Run(ctx)
}

// Run polls until ctx is cancelled, returning nil, or until enumeration fails
// in a way that retrying cannot fix.
func (m *Monitor) Run(ctx context.Context) error {
	log.WithField("interval", m.interval).Info("Starting VPN address tracker")
	defer log.Info("Stopping VPN address tracker")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := m.cycle(ctx); err != nil {
			return err
		}

		timer.Reset(m.interval)
	}
}

func (m *Monitor) cycle(ctx context.Context) error {
	records, err := m.source.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return m.enumerationFailed(err)
	}
	m.consecutiveEnumFailures = 0

	candidates := m.selector.Select(records)
	if len(candidates) == 0 {
		log.WithField("interfaces", len(records)).Trace("No VPN interface present")
	}

	// At most one report per cycle; later candidates wait for the next one.
	for _, c := range candidates {
		if !m.detector.IsChange(c) {
			continue
		}

		if err := m.reporter.Report(ctx, c); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithFields(log.Fields{
				"interface": c.Name,
				"address":   c.Addr.String(),
			}).WithError(err).Warn("Failed to send report")
			m.reportFailed(c, err)
			break
		}

		m.detector.Commit(c)
		log.WithFields(log.Fields{
			"interface": c.Name,
			"address":   c.Addr.String(),
			"index":     c.Index,
		}).Debug("Successfully reported VPN address")
		m.reportSucceeded(c)
		break
	}

	now := m.now()
	m.updateStatus(func(s *Status) {
		s.Cycles++
		s.LastCycleAt = &now
		s.ConsecutiveEnumFailures = 0
	})
	return nil
}

func (m *Monitor) enumerationFailed(err error) error {
	var enumErr *netmon.EnumerationError
	if !errors.As(err, &enumErr) {
		enumErr = &netmon.EnumerationError{Op: "list", Err: err}
	}
	m.consecutiveEnumFailures++
	n := m.consecutiveEnumFailures

	log.WithField("consecutive", n).WithError(enumErr).Warn("Failed to enumerate network interfaces")

	now := m.now()
	m.updateStatus(func(s *Status) {
		s.Cycles++
		s.LastCycleAt = &now
		s.EnumerationFailures++
		s.ConsecutiveEnumFailures = n
		s.LastError = enumErr.Error()
	})
	m.publish(Event{Type: EnumerationFailed, Time: now, Error: enumErr.Error()})

	if enumErr.Permanent() {
		return enumErr
	}
	if m.maxEnumFailures > 0 && n >= m.maxEnumFailures {
		return fmt.Errorf("giving up after %d consecutive failures: %w", n, enumErr)
	}
	return nil
}

func (m *Monitor) reportSucceeded(c netmon.Snapshot) {
	now := m.now()
	m.updateStatus(func(s *Status) {
		snap := c
		s.Phase = Tracking
		s.LastReported = &snap
		s.LastReportedAt = &now
		s.LastError = ""
		s.Reports++
	})
	snap := c
	m.publish(Event{Type: ReportSucceeded, Time: now, Snapshot: &snap})
}

func (m *Monitor) reportFailed(c netmon.Snapshot, err error) {
	now := m.now()
	m.updateStatus(func(s *Status) {
		s.LastError = err.Error()
		s.ReportFailures++
	})
	snap := c
	m.publish(Event{Type: ReportFailed, Time: now, Snapshot: &snap, Error: err.Error()})
}

func (m *Monitor) updateStatus(f func(*Status)) {
	m.statusMu.Lock()
	f(&m.status)
	m.statusMu.Unlock()
}

// Status returns a copy of the monitor's progress.
func (m *Monitor) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	s := m.status
	if s.LastReported != nil {
		snap := *s.LastReported
		s.LastReported = &snap
	}
	if s.LastReportedAt != nil {
		at := *s.LastReportedAt
		s.LastReportedAt = &at
	}
	if s.LastCycleAt != nil {
		at := *s.LastCycleAt
		s.LastCycleAt = &at
	}
	return s
}

// Subscribe streams events. The most recent event, if any, is delivered first.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	sub := runtime.NewSubQueue[Event](8, subscriberBacklog)

	m.subsMu.Lock()
	if m.closed {
		m.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}
	id := m.nextSubscriberID
	m.nextSubscriberID++
	m.subs[id] = sub
	if m.lastEvent != nil {
		sub.Prime(*m.lastEvent)
	}
	sub.SetPaused(false)
	m.subsMu.Unlock()

	unsub := func() {
		m.subsMu.Lock()
		if q, ok := m.subs[id]; ok {
			delete(m.subs, id)
			q.Close()
		}
		m.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

// Close ends all subscriptions. It does not stop Run; cancel its context.
func (m *Monitor) Close() error {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, q := range m.subs {
		q.Close()
		delete(m.subs, id)
	}
	return nil
}

func (m *Monitor) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.lastEvent = &ev
	for _, sub := range m.subs {
		sub.Enqueue(ev)
	}
}
