package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/m3rciful/juliabot/core/bootstrap"
	coreconfig "github.com/m3rciful/juliabot/core/config"
	"github.com/m3rciful/juliabot/core/logger"
)

// Options describe how to load configuration, compose the bot and run it.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	// Setup fills the bot-specific parts of the bootstrap options.
	Setup func(cfg *coreconfig.Config) (bootstrap.Options, error)

	ShutdownLogger func() error
	Run            func(ctx context.Context, opts bootstrap.Options) error
	// Signals overrides the signals that stop the bot; SIGINT and SIGTERM by default.
	Signals []os.Signal
}

// Run loads configuration, composes the bot and serves updates until interrupted.
// An interruption is a clean exit.
func Run(opts Options) error {
	if opts.Setup == nil {
		return fmt.Errorf("cmd: Setup is required")
	}
	load := opts.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	bootOpts, err := opts.Setup(cfg)
	if err != nil {
		return fmt.Errorf("cmd: setup failed: %w", err)
	}
	bootOpts.Config = cfg

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := signal.NotifyContext(context.Background(), signals...)
	defer cancel()

	run := opts.Run
	if run == nil {
		run = bootstrap.Run
	}

	runErr := run(ctx, bootOpts)
	if ctx.Err() != nil {
		logger.App.Error("bot stopped", slog.String("event", "interrupt"))
		logger.App.Info("close connection", slog.String("event", "shutdown"))
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		return nil
	}
	return runErr
}
