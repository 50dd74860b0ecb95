package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/minimee/internal/settings"
	"github.com/eugenenazirov/minimee/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultEnvHookPrefix  = "MINIMEE_SETTING_"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                 string
	HostConfigFile       string
	DatabaseURL          string
	ExtensionClass       string
	RootPath             string
	SessionTTL           time.Duration
	Extensions           []string
	AllowURLFetch        bool
	EnvHook              bool
	EnvHookPrefix        string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	LogLevel             string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string           `yaml:"port"`
	HostConfigFile       string           `yaml:"host_config"`
	DatabaseURL          string           `yaml:"database_url"`
	ExtensionClass       string           `yaml:"extension_class"`
	RootPath             string           `yaml:"root_path"`
	SessionTTL           string           `yaml:"session_ttl"`
	Capabilities         yamlCapabilities `yaml:"capabilities"`
	EnvHook              yamlEnvHook      `yaml:"env_hook"`
	ShutdownGracePeriod  string           `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string           `yaml:"read_header_timeout"`
	WriteTimeout         string           `yaml:"write_timeout"`
	IdleTimeout          string           `yaml:"idle_timeout"`
	EnableRequestLogging *bool            `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit    `yaml:"rate_limit"`
	LogLevel             string           `yaml:"log_level"`
}

type yamlCapabilities struct {
	Extensions    []string `yaml:"extensions"`
	AllowURLFetch *bool    `yaml:"allow_url_fetch"`
}

type yamlEnvHook struct {
	Enabled *bool  `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	HostConfigFile *string
	DatabaseURL    *string
	RootPath       *string
	Extensions     *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return Config{
		Port:                 defaultPort,
		ExtensionClass:       settings.ExtensionClass,
		RootPath:             root,
		SessionTTL:           storage.DefaultSessionTTL,
		Extensions:           []string{settings.CurlExtension},
		AllowURLFetch:        true,
		EnvHookPrefix:        defaultEnvHookPrefix,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             "info",
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	setString(&cfg.Port, yamlCfg.Port)
	setString(&cfg.HostConfigFile, yamlCfg.HostConfigFile)
	setString(&cfg.DatabaseURL, yamlCfg.DatabaseURL)
	setString(&cfg.ExtensionClass, yamlCfg.ExtensionClass)
	setString(&cfg.RootPath, yamlCfg.RootPath)
	setString(&cfg.EnvHookPrefix, yamlCfg.EnvHook.Prefix)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)

	setDuration(&cfg.SessionTTL, yamlCfg.SessionTTL)
	setDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	setDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	setDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	setDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)

	if yamlCfg.Capabilities.Extensions != nil {
		cfg.Extensions = yamlCfg.Capabilities.Extensions
	}
	if yamlCfg.Capabilities.AllowURLFetch != nil {
		cfg.AllowURLFetch = *yamlCfg.Capabilities.AllowURLFetch
	}
	if yamlCfg.EnvHook.Enabled != nil {
		cfg.EnvHook = *yamlCfg.EnvHook.Enabled
	}
	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	setString(&cfg.Port, env("PORT"))
	setString(&cfg.HostConfigFile, env("MINIMEE_HOST_CONFIG"))
	setString(&cfg.DatabaseURL, env("DATABASE_URL"))
	setString(&cfg.ExtensionClass, env("MINIMEE_EXTENSION_CLASS"))
	setString(&cfg.RootPath, env("MINIMEE_ROOT_PATH"))
	setString(&cfg.EnvHookPrefix, env("MINIMEE_ENV_HOOK_PREFIX"))
	setString(&cfg.LogLevel, env("LOG_LEVEL"))
	setDuration(&cfg.SessionTTL, env("MINIMEE_SESSION_TTL"))

	if raw := env("MINIMEE_EXTENSIONS"); raw != "" {
		cfg.Extensions = splitList(raw)
	}
	if raw := env("MINIMEE_ALLOW_URL_FETCH"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.AllowURLFetch = value
		}
	}
	if raw := env("MINIMEE_ENV_HOOK"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.EnvHook = value
		}
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil {
		setString(&cfg.Port, *overrides.Port)
	}
	if overrides.HostConfigFile != nil {
		setString(&cfg.HostConfigFile, *overrides.HostConfigFile)
	}
	if overrides.DatabaseURL != nil {
		setString(&cfg.DatabaseURL, *overrides.DatabaseURL)
	}
	if overrides.RootPath != nil {
		setString(&cfg.RootPath, *overrides.RootPath)
	}
	if overrides.LogLevel != nil {
		setString(&cfg.LogLevel, *overrides.LogLevel)
	}
	if overrides.Extensions != nil {
		cfg.Extensions = splitList(*overrides.Extensions)
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration and reports every problem
// at once.
func validateConfig(cfg Config) error {
	var errs *multierror.Error

	if strings.TrimSpace(cfg.Port) == "" {
		errs = multierror.Append(errs, errors.New("port cannot be empty"))
	}
	if cfg.RateLimitRPS < 0 {
		errs = multierror.Append(errs, errors.New("RATE_LIMIT_RPS must be >= 0"))
	}
	if cfg.RateLimitBurst < 0 {
		errs = multierror.Append(errs, errors.New("RATE_LIMIT_BURST must be >= 0"))
	}
	if cfg.SessionTTL <= 0 {
		errs = multierror.Append(errs, errors.New("session TTL must be positive"))
	}
	if strings.TrimSpace(cfg.ExtensionClass) == "" {
		errs = multierror.Append(errs, errors.New("extension class cannot be empty"))
	}

	return errs.ErrorOrNil()
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
