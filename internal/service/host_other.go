//go:build !windows

package service

// Run runs fn with a context cancelled on SIGINT or SIGTERM.
func Run(name string, fn RunFunc) error {
	return runInteractive(fn)
}
