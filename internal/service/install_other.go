//go:build !linux && !windows

package service

func Install(opts Options) (string, error) {
	return "", ErrUnsupported
}

func Uninstall(name string) error {
	return ErrUnsupported
}
