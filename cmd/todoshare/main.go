package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoshare/internal/app"
	"github.com/nhle/todoshare/internal/credential"
	"github.com/nhle/todoshare/internal/logging"
	"github.com/nhle/todoshare/internal/model"
	"github.com/nhle/todoshare/internal/realtime"
	"github.com/nhle/todoshare/internal/registry"
	"github.com/nhle/todoshare/internal/remote"
	"github.com/nhle/todoshare/internal/server"
	"github.com/nhle/todoshare/internal/store"
)

const usage = `usage: todoshare [--config path] [serve | tui | init-config | set-dsn <dsn>]

  serve        run the HTTP server and change feed
  tui          run the terminal client (default)
  init-config  write the effective configuration to the config file
  set-dsn      store the postgres connection string in the OS keyring
`

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "tui"
	}

	if cmd == "set-dsn" {
		if flag.NArg() != 2 {
			return errors.New("set-dsn takes exactly one argument")
		}
		vault, err := credential.Open()
		if err != nil {
			return err
		}
		return vault.Set(credential.DatabaseDSNKey, flag.Arg(1))
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "init-config":
		return initConfig(*configPath, cfg)
	case "serve":
		return serve(ctx, cfg)
	case "tui":
		return runTUI(ctx, cfg)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// initConfig writes cfg to path. An existing file is left alone.
func initConfig(path string, cfg *model.AppConfig) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config %s: %w", path, err)
	}
	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}

func setupLogger(cfg model.LogConfig) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// backend is a store, hub and Local remote wired together, plus the
// realtime sources that feed the hub.
type backend struct {
	store  *store.SQLStore
	hub    *realtime.Hub
	local  *remote.Local
	dsn    string
	logger *slog.Logger
}

func openBackend(cfg *model.AppConfig, logger *slog.Logger) (*backend, error) {
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == model.DriverPostgres && dsn == "" {
		vault, err := credential.Open()
		if err != nil {
			return nil, err
		}
		if dsn, err = vault.ResolveDSN(dsn); err != nil {
			return nil, err
		}
	}

	logger.Info("Opening store", "driver", cfg.Store.Driver)
	st, err := store.Open(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(cfg.Realtime.Buffer, logger)

	// The postgres trigger emits every change, so Local must not publish too.
	publish := st.Driver() != model.DriverPostgres
	local := remote.NewLocal(st, hub, remote.WithPublish(publish), remote.WithLogger(logger))

	return &backend{store: st, hub: hub, local: local, dsn: dsn, logger: logger}, nil
}

// startFeeds runs the postgres listener and NATS bridge when configured.
func (b *backend) startFeeds(ctx context.Context, cfg *model.AppConfig) (func(), error) {
	var closers []func()

	if b.store.Driver() == model.DriverPostgres {
		l := realtime.NewPGListener(b.dsn, store.NotifyChannel, b.hub, b.logger)
		go func() {
			if err := l.Run(ctx); err != nil {
				b.logger.Error("Postgres listener stopped", "error", err)
			}
		}()
	}

	if cfg.Realtime.NATSURL != "" {
		bridge, err := realtime.NewNATSBridge(cfg.Realtime.NATSURL, cfg.Realtime.SubjectPrefix, b.hub, b.logger)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := bridge.Run(ctx); err != nil {
				b.logger.Error("NATS bridge stopped", "error", err)
			}
		}()
		closers = append(closers, func() { _ = bridge.Close() })
	}

	return func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func (b *backend) Close() {
	b.hub.Close()
	if err := b.store.Close(); err != nil {
		b.logger.Warn("Closing store failed", "error", err)
	}
}

func serve(ctx context.Context, cfg *model.AppConfig) error {
	logger, closer, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	stopFeeds, err := b.startFeeds(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopFeeds()

	return server.New(b.local, logger).ListenAndServe(ctx, cfg.Server.Addr)
}

func runTUI(ctx context.Context, cfg *model.AppConfig) error {
	// Log lines must not draw over the terminal UI.
	logCfg := cfg.Log
	if logCfg.Output != "file" {
		logCfg.Output = "file"
	}
	logger, closer, err := setupLogger(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var r registry.Remote
	switch cfg.Client.Mode {
	case model.ClientModeLocal:
		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		stopFeeds, err := b.startFeeds(ctx, cfg)
		if err != nil {
			return err
		}
		defer stopFeeds()
		r = b.local
	default:
		c, err := remote.NewClient(cfg.Client.ServerURL, logger)
		if err != nil {
			return err
		}
		r = c
	}

	var opts []registry.Option
	if cfg.Registry.RollbackOnFailure {
		opts = append(opts, registry.WithFailurePolicy(registry.Rollback))
	}

	p := tea.NewProgram(app.New(ctx, r, logger, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
