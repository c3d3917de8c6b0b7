// Package main provides the CLI entry point for rewind.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/rewind/pkg/adapters/boltstore"
	"github.com/user/rewind/pkg/adapters/logger"
	"github.com/user/rewind/pkg/adapters/osfilesystem"
	"github.com/user/rewind/pkg/adapters/smartdecoder"
	"github.com/user/rewind/pkg/config"
	"github.com/user/rewind/pkg/engine"
	"github.com/user/rewind/pkg/ports"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "rewind",
		Usage:   l10n.T("Play MP4 files with audio/video sync and instant seeking"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   l10n.T("Config file (default: user config directory)"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   l10n.T("Log level (debug, info, warn, error)"),
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   l10n.T("Suppress all log output"),
			},
		},
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			indexCommand(),
			configCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("rewind version %s", version))
					return nil
				},
			},
		},
	}
}

// env holds what every command needs: the effective configuration and the
// adapters built from it.
type env struct {
	cfg config.Config
	fs  ports.FileSystem
	log ports.Logger
}

func setup(c *cli.Context) (*env, error) {
	fs := osfilesystem.New()

	var cfg config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(fs, path)
	} else {
		cfg, err = config.LoadDefault(fs)
	}
	if err != nil {
		return nil, err
	}

	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(cfg.Level())
	}

	return &env{cfg: cfg, fs: fs, log: log}, nil
}

// openStore opens the index database when the cache is enabled. A database
// that cannot be opened only disables caching.
func (e *env) openStore() ports.IndexStore {
	if !e.cfg.IndexCache.Enabled {
		return nil
	}
	store, err := boltstore.Open(e.cfg.IndexCache.Path, e.fs)
	if err != nil {
		e.log.Warn("Index cache unavailable: %s", err)
		return nil
	}
	return store
}

func (e *env) newBackend() *smartdecoder.Decoder {
	return smartdecoder.New(smartdecoder.Options{
		FFmpegPath: e.cfg.FFmpegPath,
		Logger:     e.log,
	})
}

func (e *env) newEngine(store ports.IndexStore, now func() float64) *engine.Engine {
	opts := e.cfg.ToEngineOptions()
	opts.Now = now
	opts.Logger = e.log
	opts.Store = store
	return engine.New(e.newBackend(), opts)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// wallClock returns a monotonic clock in seconds.
func wallClock() func() float64 {
	epoch := time.Now()
	return func() float64 { return time.Since(epoch).Seconds() }
}

func requireArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf(l10n.T("expected exactly one FILE argument, got %d"), c.NArg())
	}
	return c.Args().First(), nil
}
