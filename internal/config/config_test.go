package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "test-token-not-a-secret"
	testURL   = "https://report.example.test/ip"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid https", Config{Token: testToken, ReportURL: testURL}, true},
		{"valid http", Config{Token: testToken, ReportURL: "http://127.0.0.1:8080/"}, true},
		{"empty token", Config{ReportURL: testURL}, false},
		{"empty url", Config{Token: testToken}, false},
		{"relative url", Config{Token: testToken, ReportURL: "/ip"}, false},
		{"no host", Config{Token: testToken, ReportURL: "https:///ip"}, false},
		{"bad scheme", Config{Token: testToken, ReportURL: "ftp://example.test/"}, false},
		{"unparsable", Config{Token: testToken, ReportURL: "http://[::1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
			assert.NotContains(t, err.Error(), testToken)
		})
	}
}

func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := Config{Token: testToken, ReportURL: testURL}

	assert.NotContains(t, cfg.String(), testToken)
	assert.NotContains(t, fmt.Sprintf("%v", cfg), testToken)
	assert.NotContains(t, fmt.Sprintf("%+v", cfg), testToken)
	assert.NotContains(t, fmt.Sprintf("%#v", cfg), testToken)
	assert.Contains(t, cfg.String(), testURL)
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Setenv(ReportURLEnv, "")

	path := filepath.Join(t.TempDir(), AppName, "default-config.toml")
	want := Config{Token: testToken, ReportURL: testURL}

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestSave_TightensExistingFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "default-config.toml")
	require.NoError(t, os.WriteFile(path, []byte("token = \"old\"\n"), 0o644))

	require.NoError(t, Save(path, Config{Token: testToken, ReportURL: testURL}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testToken, got.Token)
}

func TestLoad_EnvFallbackWhenFileMissing(t *testing.T) {
	t.Setenv(TokenEnv, "some_env_token")
	t.Setenv(ReportURLEnv, "https://some_url/")

	got, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "some_env_token", got.Token)
	assert.Equal(t, "https://some_url/", got.ReportURL)
}

func TestLoad_EnvFallbackWhenFileEmpty(t *testing.T) {
	t.Setenv(TokenEnv, "some_env_token")
	t.Setenv(ReportURLEnv, "https://some_url/")

	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "some_env_token", got.Token)
}

func TestLoad_FileWinsOverEnv(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	t.Setenv(ReportURLEnv, "https://env.example.test/")

	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, Save(path, Config{Token: testToken, ReportURL: testURL}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testToken, got.Token)
}

func TestLoad_NothingAvailable(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Setenv(ReportURLEnv, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFromEnv_RequiresBoth(t *testing.T) {
	t.Setenv(TokenEnv, testToken)
	t.Setenv(ReportURLEnv, "")

	_, err := FromEnv()
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, err.Error(), testToken)
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Skipf("no config dir on this host: %v", err)
	}
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, ".toml", filepath.Ext(path))
}
