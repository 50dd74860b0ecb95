package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/minimee/internal/application"
	"github.com/eugenenazirov/minimee/internal/config"
	"github.com/eugenenazirov/minimee/internal/logging"
	"github.com/eugenenazirov/minimee/internal/settings"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("minimee", "Minimee settings service - resolves, sanitises and serves extension settings")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	hostConfig := kingpinApp.Flag("host-config", "Path to the host configuration file (YAML, JSON or TOML)").String()
	databaseURL := kingpinApp.Flag("database-url", "Host database connection string").String()
	rootPath := kingpinApp.Flag("root-path", "Host root filesystem path").String()
	var extensionsSet bool
	extensions := kingpinApp.Flag("extensions", "Comma-separated list of loaded runtime extensions").IsSetByUser(&extensionsSet).String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	serveCmd := kingpinApp.Command("serve", "Serve resolved settings over HTTP").Default()
	resolveCmd := kingpinApp.Command("resolve", "Resolve settings once and print them as YAML")
	session := resolveCmd.Flag("session", "Session id used for caching").String()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		Port:           optionalString(*port),
		HostConfigFile: optionalString(*hostConfig),
		DatabaseURL:    optionalString(*databaseURL),
		RootPath:       optionalString(*rootPath),
		LogLevel:       optionalString(*logLevel),
	}
	if extensionsSet {
		overrides.Extensions = extensions
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	switch command {
	case resolveCmd.FullCommand():
		if err := printResolution(os.Stdout, app.Resolver().Resolve(ctx, *session)); err != nil {
			logger.Fatal("failed to print settings", zap.Error(err))
		}
	case serveCmd.FullCommand():
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

type resolutionOutput struct {
	Location     string                     `yaml:"location"`
	Cached       bool                       `yaml:"cached"`
	Settings     map[string]any             `yaml:"settings"`
	Registration *settings.HookRegistration `yaml:"registration,omitempty"`
}

func printResolution(w io.Writer, res settings.Resolution) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resolutionOutput{
		Location:     string(res.Store.Location()),
		Cached:       res.Cached,
		Settings:     res.Store.GetAll().Raw(),
		Registration: res.Registration,
	}); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
