package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/eugenenazirov/minimee/internal/storage"
)

var envVars = []string{
	"PORT", "MINIMEE_HOST_CONFIG", "DATABASE_URL", "MINIMEE_EXTENSION_CLASS",
	"MINIMEE_ROOT_PATH", "MINIMEE_ENV_HOOK_PREFIX", "MINIMEE_SESSION_TTL",
	"MINIMEE_EXTENSIONS", "MINIMEE_ALLOW_URL_FETCH", "MINIMEE_ENV_HOOK",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.SessionTTL != storage.DefaultSessionTTL {
		t.Fatalf("unexpected session ttl: %s", cfg.SessionTTL)
	}
	if !slices.Equal(cfg.Extensions, []string{"curl"}) || !cfg.AllowURLFetch {
		t.Fatalf("unexpected capabilities: %v %v", cfg.Extensions, cfg.AllowURLFetch)
	}
	if cfg.ExtensionClass != "Minimee_ext" || cfg.RootPath == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MINIMEE_EXTENSIONS", "curl, openssl ,")
	t.Setenv("MINIMEE_ALLOW_URL_FETCH", "false")
	t.Setenv("MINIMEE_ENV_HOOK", "true")
	t.Setenv("MINIMEE_SESSION_TTL", "5m")
	t.Setenv("DATABASE_URL", "postgres://localhost/ee")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if !slices.Equal(cfg.Extensions, []string{"curl", "openssl"}) {
		t.Fatalf("unexpected extensions: %v", cfg.Extensions)
	}
	if cfg.AllowURLFetch || !cfg.EnvHook {
		t.Fatalf("unexpected toggles: fetch=%v hook=%v", cfg.AllowURLFetch, cfg.EnvHook)
	}
	if cfg.SessionTTL != 5*time.Minute || cfg.DatabaseURL != "postgres://localhost/ee" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "7000"
host_config: /etc/host.yaml
root_path: /srv/site
session_ttl: 1h
capabilities:
  extensions: []
  allow_url_fetch: false
env_hook:
  enabled: true
  prefix: SITE_
enable_request_logging: false
rate_limit:
  rps: 0
  burst: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MINIMEE_ROOT_PATH", "/env/root")
	port := "7100"

	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7100" {
		t.Fatalf("CLI should beat YAML, got %s", cfg.Port)
	}
	if cfg.RootPath != "/env/root" {
		t.Fatalf("env should beat YAML, got %s", cfg.RootPath)
	}
	if cfg.HostConfigFile != "/etc/host.yaml" || cfg.SessionTTL != time.Hour {
		t.Fatalf("YAML values not applied: %+v", cfg)
	}
	if len(cfg.Extensions) != 0 || cfg.AllowURLFetch {
		t.Fatalf("YAML capabilities not applied: %v %v", cfg.Extensions, cfg.AllowURLFetch)
	}
	if !cfg.EnvHook || cfg.EnvHookPrefix != "SITE_" || cfg.EnableRequestLogging {
		t.Fatalf("YAML toggles not applied: %+v", cfg)
	}
	if cfg.RateLimitRPS != 0 || cfg.RateLimitBurst != 5 {
		t.Fatalf("YAML rate limit not applied: %v %v", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadCLIOverrides(t *testing.T) {
	clearEnv(t)

	host := "/etc/ee.toml"
	level := "debug"
	exts := ""
	rps := 3.0
	burst := 7

	cfg, err := Load(&CLIOverrides{HostConfigFile: &host, Extensions: &exts, LogLevel: &level, RateLimitRPS: &rps, RateLimitBurst: &burst})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HostConfigFile != host || len(cfg.Extensions) != 0 || cfg.RateLimitRPS != 3 || cfg.RateLimitBurst != 7 || cfg.LogLevel != "debug" {
		t.Fatalf("CLI overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateConfigReportsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Port = " "
	cfg.RateLimitRPS = -1
	cfg.SessionTTL = 0

	err := validateConfig(cfg)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"port", "RATE_LIMIT_RPS", "session TTL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	if err := validateConfig(defaultConfig()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	if got := splitList(" a, ,b ,"); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("unexpected list: %v", got)
	}
	if got := splitList(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
