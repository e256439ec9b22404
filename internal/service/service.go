// Package service hosts the tracker as an OS service and installs it.
package service

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

var ErrUnsupported = errors.New("service management not supported on this platform")

// RunFunc is the hosted workload. It must return soon after ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Options describe the service to install.
type Options struct {
	Name        string
	DisplayName string
	Description string
	Executable  string
	Args        []string
	// Dependencies are services that must be running first (Windows only).
	Dependencies []string
}

func runInteractive(fn RunFunc) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return fn(ctx)
}
