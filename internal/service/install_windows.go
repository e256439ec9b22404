//go:build windows

package service

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	restartDelay       = 5 * time.Second
	failureResetPeriod = 48 * time.Hour
	stopTimeout        = 10 * time.Second
)

// Install registers a manual-start service that restarts on failure, and an
// event log source of the same name. It returns the service name.
func Install(opts Options) (string, error) {
	if opts.Name == "" || opts.Executable == "" {
		return "", fmt.Errorf("install service: name and executable are required")
	}

	m, err := mgr.Connect()
	if err != nil {
		return "", fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(opts.Name); err == nil {
		s.Close()
		return "", fmt.Errorf("service %s already exists", opts.Name)
	}

	s, err := m.CreateService(opts.Name, opts.Executable, mgr.Config{
		DisplayName:  opts.DisplayName,
		Description:  opts.Description,
		StartType:    mgr.StartManual,
		ErrorControl: mgr.ErrorNormal,
		Dependencies: opts.Dependencies,
	}, opts.Args...)
	if err != nil {
		return "", fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	actions := []mgr.RecoveryAction{{Type: mgr.ServiceRestart, Delay: restartDelay}}
	if err := s.SetRecoveryActions(actions, uint32(failureResetPeriod.Seconds())); err != nil {
		_ = s.Delete()
		return "", fmt.Errorf("set recovery actions: %w", err)
	}
	if err := s.SetRecoveryActionsOnNonCrashFailures(true); err != nil {
		_ = s.Delete()
		return "", fmt.Errorf("set recovery on non-crash failures: %w", err)
	}

	if err := eventlog.InstallAsEventCreate(opts.Name, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		_ = s.Delete()
		return "", fmt.Errorf("install event log source: %w", err)
	}

	log.WithField("service", opts.Name).Info("Installed Windows service")
	return opts.Name, nil
}

// Uninstall stops the service if needed, deletes it and its event log source.
func Uninstall(name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return fmt.Errorf("query service: %w", err)
	}
	if status.State != svc.Stopped {
		if _, err := s.Control(svc.Stop); err != nil && !errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return fmt.Errorf("stop service: %w", err)
		}
		deadline := time.Now().Add(stopTimeout)
		for status.State != svc.Stopped {
			if time.Now().After(deadline) {
				return fmt.Errorf("service %s did not stop within %s", name, stopTimeout)
			}
			time.Sleep(300 * time.Millisecond)
			if status, err = s.Query(); err != nil {
				return fmt.Errorf("query service: %w", err)
			}
		}
	}

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if err := eventlog.Remove(name); err != nil {
		log.WithError(err).Warn("Failed to remove event log source")
	}

	log.WithField("service", name).Info("Removed Windows service")
	return nil
}
