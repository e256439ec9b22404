package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ipreport/vpn-ip-tracker/internal/api"
	"github.com/ipreport/vpn-ip-tracker/internal/config"
	"github.com/ipreport/vpn-ip-tracker/internal/netmon"
	"github.com/ipreport/vpn-ip-tracker/internal/runtime"
	"github.com/ipreport/vpn-ip-tracker/internal/service"
	"github.com/ipreport/vpn-ip-tracker/internal/tracker"
	"github.com/ipreport/vpn-ip-tracker/pkg/cli"
)

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Config: ConfigPath=%s", cfg.ConfigPath)
	log.Infof("Config: LogLevel=%s", cfg.LogLevel)
	log.Infof("Config: Interval=%s", cfg.Interval)
	log.Infof("Config: StatusAddr=%s", cfg.StatusAddr)

	err := service.Run(config.AppName, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
	if err != nil {
		log.WithError(err).Fatal("vpn-ip-tracker stopped")
	}
}

func run(ctx context.Context, cfg *cli.Config) error {
	trackerCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	mon, err := tracker.New(trackerCfg, netmon.NewSource(),
		tracker.WithSelector(buildSelector(cfg)),
		tracker.WithInterval(cfg.Interval),
		tracker.WithMaxEnumerationFailures(cfg.MaxEnumFailures),
	)
	if err != nil {
		return err
	}
	log.WithField("reportURL", trackerCfg.ReportURL).Info("Loaded tracker config")

	super := runtime.NewSupervisor()
	super.Add("tracker", mon.Run, mon.Close)
	if cfg.StatusAddr != "" {
		apiSvc := api.NewService(cfg.StatusAddr, mon)
		super.Add("api", apiSvc.Start, apiSvc.Close)
	}

	if err := super.Start(ctx); err != nil {
		return err
	}
	return super.Wait(ctx)
}

func buildSelector(cfg *cli.Config) *netmon.Selector {
	if len(cfg.IfacePrefixes) == 0 && len(cfg.IfaceDescription) == 0 {
		return netmon.PlatformSelector()
	}
	var matchers []netmon.Matcher
	if len(cfg.IfacePrefixes) > 0 {
		matchers = append(matchers, netmon.NamePrefix(cfg.IfacePrefixes...))
	}
	if len(cfg.IfaceDescription) > 0 {
		matchers = append(matchers, netmon.DescriptionContains(cfg.IfaceDescription...))
	}
	return netmon.NewSelector(netmon.AnyOf(matchers...))
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
