// Package config loads server settings from flags, the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds every runtime setting of the server.
type Config struct {
	Port            string        `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ProjectID       string        `mapstructure:"project_id"`
	DocsPath        string        `mapstructure:"docs_path"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Flag names shared with the CLI.
const (
	FlagPort     = "port"
	FlagEnvFile  = "env-file"
	FlagLogLevel = "log-level"
)

const (
	envFileEnv     = "ENV_FILE"
	defaultEnvFile = ".env"
)

// envKeys maps config keys to the environment variables that set them.
var envKeys = map[string]string{
	"port":             "PORT",
	"log_level":        "LOG_LEVEL",
	"project_id":       "GOOGLE_CLOUD_PROJECT",
	"docs_path":        "DOCS_PATH",
	"cors_origins":     "CORS_ORIGINS",
	"rate_limit_rps":   "RATE_LIMIT_RPS",
	"rate_limit_burst": "RATE_LIMIT_BURST",
	"metrics_enabled":  "METRICS_ENABLED",
	"shutdown_timeout": "SHUTDOWN_TIMEOUT",
}

// flagKeys maps CLI flags to config keys.
var flagKeys = map[string]string{
	FlagPort:     "port",
	FlagLogLevel: "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("project_id", "")
	v.SetDefault("docs_path", "/api-docs")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("rate_limit_rps", 0.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

// RegisterFlags adds the server flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagPort, "", "port to listen on (env PORT, default 8080)")
	flags.String(FlagEnvFile, defaultEnvFile, "dotenv file loaded before reading the environment (env ENV_FILE); missing files are ignored")
	flags.String(FlagLogLevel, "", "minimum log level: debug, info, warn, error (env LOG_LEVEL)")
}

// Load resolves the configuration with precedence flag > environment > .env file > default.
// flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	envFile := envFilePath(flags)
	// godotenv.Load never overrides variables that are already set.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envFilePath resolves the dotenv file: an explicit --env-file, then ENV_FILE,
// then the flag default.
func envFilePath(flags *pflag.FlagSet) string {
	var f *pflag.Flag
	if flags != nil {
		f = flags.Lookup(FlagEnvFile)
	}
	if f != nil && f.Changed {
		return f.Value.String()
	}
	if path, ok := os.LookupEnv(envFileEnv); ok {
		return path
	}
	if f != nil {
		return f.DefValue
	}
	return defaultEnvFile
}

// splitOrigins normalizes origins given either as a list or as one comma-separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q: must be 1-65535", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate limit %v: must not be negative", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("invalid rate limit burst %d: must not be negative", c.RateLimitBurst)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %s: must be positive", c.ShutdownTimeout)
	}
	if c.DocsPath != "" && !strings.HasPrefix(c.DocsPath, "/") {
		return fmt.Errorf("invalid docs path %q: must start with /", c.DocsPath)
	}
	return nil
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return ":" + c.Port
}
