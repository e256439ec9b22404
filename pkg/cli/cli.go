package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ipreport/vpn-ip-tracker/internal/config"
	"github.com/ipreport/vpn-ip-tracker/pkg/version"
)

// Config holds the agent's command line settings.
type Config struct {
	ConfigPath       string
	LogLevel         string
	Verbose          bool
	StatusAddr       string
	Interval         time.Duration
	IfacePrefixes    []string
	IfaceDescription []string
	MaxEnumFailures  int
	ShowVersion      bool
}

// ParseFlags parses os.Args and exits on -version or bad flags.
func ParseFlags() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.ShowVersion {
		PrintVersion(os.Stdout)
		os.Exit(0)
	}
	return cfg
}

// Parse parses args into a Config using fs.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	defaultPath, _ := config.DefaultPath()

	var prefixes, descriptions string
	fs.StringVar(&cfg.ConfigPath, "config", defaultPath, "Path to the tracker config file")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Shorthand for -log-level debug")
	fs.BoolVar(&cfg.Verbose, "v", false, "Shorthand for -verbose")
	fs.StringVar(&cfg.StatusAddr, "status-addr", "", "Serve the status API on this address (disabled when empty)")
	fs.DurationVar(&cfg.Interval, "interval", 30*time.Second, "Time between interface polls")
	fs.StringVar(&prefixes, "iface-prefix", "", "Comma-separated VPN interface name prefixes (default: platform convention)")
	fs.StringVar(&descriptions, "iface-description", "", "Comma-separated VPN adapter description substrings (default: platform convention)")
	fs.IntVar(&cfg.MaxEnumFailures, "max-enum-failures", 0, "Exit after this many consecutive interface enumeration failures (0 retries forever)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.IfacePrefixes = splitList(prefixes)
	cfg.IfaceDescription = splitList(descriptions)
	if cfg.Verbose && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "vpn-ip-tracker version %s (commit: %s, built at: %s)\n",
		version.Version,
		version.CommitHash,
		version.BuildTime)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("ConfigPath: %s, LogLevel: %s, StatusAddr: %s, Interval: %s, IfacePrefixes: %v, IfaceDescription: %v, MaxEnumFailures: %d",
		c.ConfigPath, c.LogLevel, c.StatusAddr, c.Interval, c.IfacePrefixes, c.IfaceDescription, c.MaxEnumFailures)
}
