//go:build windows

package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
)

// Run hosts fn under the Service Control Manager when started by it, and
// behaves like a console program otherwise.
func Run(name string, fn RunFunc) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return err
	}
	if !isService {
		return runInteractive(fn)
	}

	if elog, err := eventlog.Open(name); err == nil {
		defer elog.Close()
		log.AddHook(&eventLogHook{elog: elog})
	}

	h := &handler{fn: fn}
	if err := svc.Run(name, h); err != nil {
		return err
	}
	return h.err
}

type handler struct {
	fn  RunFunc
	err error
}

func (h *handler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.fn(ctx) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	log.Info("Service running")

	for {
		select {
		case err := <-done:
			changes <- svc.Status{State: svc.StopPending}
			return h.exit(err)
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				log.Info("Service stop requested")
				changes <- svc.Status{State: svc.StopPending, WaitHint: uint32((10 * time.Second).Milliseconds())}
				cancel()
				return h.exit(<-done)
			default:
				log.WithField("cmd", c.Cmd).Debug("Ignoring unexpected service control request")
			}
		}
	}
}

// exit maps the workload's result to a service-specific exit code so SCM
// recovery actions fire on failure.
func (h *handler) exit(err error) (bool, uint32) {
	if err != nil {
		h.err = err
		log.WithError(err).Error("Service stopped with error")
		return true, 1
	}
	return false, 0
}

// eventLogHook forwards warnings and errors to the Windows event log, since a
// service has no console.
type eventLogHook struct {
	elog *eventlog.Log
}

func (h *eventLogHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel}
}

func (h *eventLogHook) Fire(e *log.Entry) error {
	msg, err := e.String()
	if err != nil {
		return err
	}
	if e.Level == log.WarnLevel {
		return h.elog.Warning(1, msg)
	}
	return h.elog.Error(1, msg)
}
