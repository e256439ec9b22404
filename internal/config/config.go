// Package config resolves the tracker credentials: a config file first, then
// the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	AppName = "vpn-ip-tracker"

	// ReportURLEnv and TokenEnv are consulted when no config file is usable.
	ReportURLEnv = "IPREPORT_ADDR"
	TokenEnv     = "IPREPORT_APP_TOKEN"

	keyToken     = "token"
	keyReportURL = "report_url"
)

// DefaultReportURL is baked in at build time with -ldflags.
var DefaultReportURL = ""

var (
	ErrInvalid  = errors.New("invalid tracker config")
	ErrNotFound = errors.New("no tracker config found")
)

// Config is what the tracker needs to report an address.
type Config struct {
	Token     string `mapstructure:"token"`
	ReportURL string `mapstructure:"report_url"`
}

func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalid)
	}
	if c.ReportURL == "" {
		return fmt.Errorf("%w: report URL is empty", ErrInvalid)
	}
	u, err := url.Parse(c.ReportURL)
	if err != nil {
		return fmt.Errorf("%w: report URL does not parse", ErrInvalid)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: report URL must be an absolute http(s) URL", ErrInvalid)
	}
	return nil
}

// String never includes the token.
func (c Config) String() string {
	token := ""
	if c.Token != "" {
		token = "<redacted>"
	}
	return fmt.Sprintf("ReportURL: %s, Token: %s", c.ReportURL, token)
}

func (c Config) GoString() string { return "config.Config{" + c.String() + "}" }

// DefaultPath is the config file location: next to the executable on Windows,
// the user config directory elsewhere.
func DefaultPath() (string, error) {
	if runtime.GOOS == "windows" {
		exe, err := os.Executable()
		if err != nil {
			return "", err
		}
		return filepath.Join(filepath.Dir(exe), AppName+".toml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "default-config.toml"), nil
}

// Load reads the config file at path. When the file is missing, unreadable or
// empty it falls back to TokenEnv and ReportURLEnv, which must both be set.
// The result is not validated.
func Load(path string) (Config, error) {
	if path != "" {
		cfg, err := fromFile(path)
		if err == nil && cfg != (Config{}) {
			return cfg, nil
		}
	}
	return FromEnv()
}

func fromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (Config, error) {
	v := viper.New()
	_ = v.BindEnv(keyToken, TokenEnv)
	_ = v.BindEnv(keyReportURL, ReportURLEnv)

	if !v.IsSet(keyToken) || !v.IsSet(keyReportURL) {
		return Config{}, fmt.Errorf("%w: set %s and %s or write a config file", ErrNotFound, TokenEnv, ReportURLEnv)
	}
	return Config{
		Token:     v.GetString(keyToken),
		ReportURL: v.GetString(keyReportURL),
	}, nil
}

// Save writes cfg to path as TOML, readable by the owner only.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// Tighten the mode before the token is written; viper keeps the mode of
	// an existing file.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigPermissions(0o600)
	v.Set(keyToken, cfg.Token)
	v.Set(keyReportURL, cfg.ReportURL)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
