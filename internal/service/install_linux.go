//go:build linux

package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	log "github.com/sirupsen/logrus"
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.Description}}
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory={{.WorkDir}}
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))

// Install writes a systemd user unit and returns its path. Enabling it is
// left to the user (systemctl --user enable --now <name>).
func Install(opts Options) (string, error) {
	dir, err := userUnitDir()
	if err != nil {
		return "", err
	}
	return installUnit(dir, opts)
}

// Uninstall removes the user unit written by Install.
func Uninstall(name string) error {
	dir, err := userUnitDir()
	if err != nil {
		return err
	}
	return uninstallUnit(dir, name)
}

func userUnitDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "systemd", "user"), nil
}

func installUnit(dir string, opts Options) (string, error) {
	if opts.Name == "" || opts.Executable == "" {
		return "", fmt.Errorf("install service: name and executable are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create unit dir: %w", err)
	}

	data := struct {
		Description string
		WorkDir     string
		ExecStart   string
	}{
		Description: opts.Description,
		WorkDir:     filepath.Dir(opts.Executable),
		ExecStart:   execStart(opts.Executable, opts.Args),
	}
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render unit file: %w", err)
	}

	path := filepath.Join(dir, opts.Name+".service")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write unit file: %w", err)
	}

	log.WithField("path", path).Info("Installed systemd user unit")
	return path, nil
}

func uninstallUnit(dir, name string) error {
	path := filepath.Join(dir, name+".service")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove unit file: %w", err)
	}
	log.WithField("path", path).Info("Removed systemd user unit")
	return nil
}

// execStart quotes arguments containing spaces the way systemd expects.
func execStart(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{exe}, args...) {
		if strings.ContainsAny(p, " \t\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
