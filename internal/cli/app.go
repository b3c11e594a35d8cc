package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/backup"
	"github.com/roach88/bruch/internal/config"
	"github.com/roach88/bruch/internal/importer"
	"github.com/roach88/bruch/internal/pos"
	"github.com/roach88/bruch/internal/store"
	"github.com/roach88/bruch/pkg/logging"
)

// app bundles the components a command works with. Every component
// shares the one store handle.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	backups  *backup.Manager
	importer *importer.Engine
	register *pos.Register
	out      *OutputFormatter
}

// loadConfig merges the config sources and applies the --db flag.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(config.Sources{
		File:      opts.Config,
		EnvFile:   opts.EnvFile,
		LookupEnv: opts.LookupEnv,
	})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// openApp loads the configuration, opens the database and wires the
// components. Callers must call close when done.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger := logging.Setup(cmd.ErrOrStderr(), level, false)

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open database", err)
	}

	ctx := commandContext(cmd)
	if err := st.SeedAutoBackup(ctx, cfg.Backup.Auto); err != nil {
		st.Close()
		return nil, wrapDomainError(err)
	}

	backups := backup.NewManager(st,
		backup.WithKeep(cfg.Backup.Keep),
		backup.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		backups:  backups,
		importer: importer.New(st, logger),
		register: pos.NewRegister(st, backups, logger),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// withApp opens the app, runs fn and maps its error for the CLI.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return wrapDomainError(fn(commandContext(cmd), a))
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
