package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/ipreport/vpn-ip-tracker/internal/config"
	"github.com/ipreport/vpn-ip-tracker/internal/service"
	"github.com/ipreport/vpn-ip-tracker/pkg/cli"
)

const (
	displayName = "VpnIpTracking"
	description = "VPN IP Tracking Service that reports your VPN IP address"
)

func main() {
	defaultPath, _ := config.DefaultPath()

	token := flag.String("token", "", "Application token")
	reportURL := flag.String("report-url", config.DefaultReportURL, "URL to send reports with IP address info")
	path := flag.String("config", defaultPath, "Where to write the tracker config file")
	uninstall := flag.Bool("uninstall", false, "Remove the installed service and exit")
	noService := flag.Bool("no-service", false, "Only write the config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		cli.PrintVersion(os.Stdout)
		return
	}

	if *uninstall {
		if err := service.Uninstall(config.AppName); err != nil {
			log.WithError(err).Fatal("Failed to uninstall service")
		}
		return
	}

	cfg := config.Config{Token: *token, ReportURL: *reportURL}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Refusing to write configuration")
	}
	if err := config.Save(*path, cfg); err != nil {
		log.WithError(err).Fatal("Failed to save configuration")
	}
	log.WithField("path", *path).Info("Saved tracker configuration")

	if *noService {
		return
	}

	opts, err := serviceOptions(*path, defaultPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to locate the tracker executable")
	}
	where, err := service.Install(opts)
	if errors.Is(err, service.ErrUnsupported) {
		log.Warn("Service installation is not supported on this platform; run vpn-ip-tracker manually")
		return
	}
	if err != nil {
		log.WithError(err).Fatal("Failed to install service")
	}
	log.WithField("service", where).Info("Service installed")
}

// serviceOptions points the service at the agent binary shipped next to this
// one.
func serviceOptions(path, defaultPath string) (service.Options, error) {
	exe, err := os.Executable()
	if err != nil {
		return service.Options{}, err
	}
	agent := config.AppName
	if runtime.GOOS == "windows" {
		agent += ".exe"
	}

	opts := service.Options{
		Name:        config.AppName,
		DisplayName: displayName,
		Description: description,
		Executable:  filepath.Join(filepath.Dir(exe), agent),
	}
	if path != defaultPath {
		abs, err := filepath.Abs(path)
		if err != nil {
			return service.Options{}, err
		}
		opts.Args = []string{"-config", abs}
	}
	if runtime.GOOS == "windows" {
		opts.Dependencies = []string{"OpenVPNService"}
	}
	return opts, nil
}
