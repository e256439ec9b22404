package runtime

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers until the parent context is cancelled or one
// of them fails, then closes them in reverse order.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
	failed  chan struct{}
	cancel  context.CancelFunc
}

func NewSupervisor() *Supervisor {
	return &Supervisor{failed: make(chan struct{})}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	for _, w := range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := w.run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				log.WithField("worker", w.name).Debug("Worker exited")
				return
			}
			log.WithField("worker", w.name).WithError(err).Error("Worker failed")
			s.errOnce.Do(func() {
				s.err = err
				close(s.failed)
			})
		}()
	}
	return nil
}

// Wait blocks until ctx is cancelled or a worker fails, and returns the first
// worker error.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.failed:
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	workers := append([]worker(nil), s.workers...)
	s.mu.Unlock()

	// Close in reverse order.
	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF != nil {
			if err := workers[i].closeF(); err != nil {
				log.WithField("worker", workers[i].name).WithError(err).Debug("Worker close failed")
			}
		}
	}
	s.wg.Wait()
	return s.err
}
