package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envKeys {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	t.Setenv(envFileEnv, "")
	require.NoError(t, os.Unsetenv(envFileEnv))
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(newFlags(t, "--env-file", ""))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/api-docs", cfg.DocsPath)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadNilFlags(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "demo-project")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(newFlags(t, "--env-file", ""))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "demo-project", cfg.ProjectID)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t, "--env-file", "", "--port", "7000", "--log-level", "warn"))
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestEnvFileFillsUnsetVariables(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nLOG_LEVEL=error\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(newFlags(t, "--env-file", path))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel, "process environment wins over the env file")
}

func TestEnvFileFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\n"), 0o600))
	t.Setenv("ENV_FILE", path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)

	clearEnv(t)
	t.Setenv("ENV_FILE", path)
	cfg, err = Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port, "ENV_FILE applies when --env-file is not given")
}

func TestEnvFileFlagOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	fromEnv := filepath.Join(dir, "env.env")
	fromFlag := filepath.Join(dir, "flag.env")
	require.NoError(t, os.WriteFile(fromEnv, []byte("PORT=9191\n"), 0o600))
	require.NoError(t, os.WriteFile(fromFlag, []byte("PORT=9292\n"), 0o600))
	t.Setenv("ENV_FILE", fromEnv)

	cfg, err := Load(newFlags(t, "--env-file", fromFlag))
	require.NoError(t, err)
	assert.Equal(t, "9292", cfg.Port)
}

func TestEnvFilePath(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, ".env", envFilePath(nil))
	assert.Equal(t, ".env", envFilePath(newFlags(t)))

	t.Setenv("ENV_FILE", "/etc/index.env")
	assert.Equal(t, "/etc/index.env", envFilePath(nil))
	assert.Equal(t, "/etc/index.env", envFilePath(newFlags(t)))
	assert.Empty(t, envFilePath(newFlags(t, "--env-file", "")))
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(newFlags(t, "--env-file", filepath.Join(t.TempDir(), "absent.env")))
	require.NoError(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"non numeric port":  {"PORT": "http"},
		"port out of range": {"PORT": "70000"},
		"unknown log level": {"LOG_LEVEL": "verbose"},
		"negative rps":      {"RATE_LIMIT_RPS": "-1"},
		"zero shutdown":     {"SHUTDOWN_TIMEOUT": "0s"},
		"relative docs":     {"DOCS_PATH": "docs"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(newFlags(t, "--env-file", ""))
			require.Error(t, err)
		})
	}
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitOrigins([]string{"a, b", " ", "c"}))
	assert.Nil(t, splitOrigins(nil))
}
