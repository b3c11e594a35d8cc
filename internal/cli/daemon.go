package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/backup"
	"github.com/roach88/bruch/internal/config"
)

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the automatic backup scheduler",
		Long: `Run the automatic backup scheduler until interrupted.

On start a backup is taken if none exists or the newest one is older than
the backup interval. While running, a backup is taken every interval.
On shutdown a last backup is taken unless one was made within the
debounce window. Nothing is backed up while the auto-backup preference
is off ("bruch backup auto off").

Example:
  bruch daemon --db ./kasse.db --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()
			return runDaemon(commandContext(cmd), cmd, a)
		},
	}
}

func runDaemon(parentCtx context.Context, cmd *cobra.Command, a *app) error {
	scheduler := backup.NewScheduler(a.backups, a.store,
		backup.WithInterval(a.cfg.Backup.Interval),
		backup.WithDebounce(a.cfg.Backup.Debounce),
		backup.WithSchedulerLogger(a.logger),
	)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	scheduler.OnForeground(ctx)
	scheduler.Start(ctx)
	a.logger.Info("backup scheduler running", "db", a.store.Path(), "interval", a.cfg.Backup.Interval)
	fmt.Fprintln(cmd.OutOrStdout(), "Automatisches Backup läuft. Beenden mit Strg-C.")

	<-ctx.Done()
	scheduler.Stop()

	// ctx is done; the teardown backup still needs a live context.
	scheduler.OnTeardown(context.WithoutCancel(ctx))
	a.logger.Info("backup scheduler stopped gracefully")
	return nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.Success(configView(cfg))
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	})
	return cmd
}

// configView renders durations as strings for JSON output.
func configView(cfg config.Config) map[string]any {
	return map[string]any{
		"database": cfg.Database,
		"logLevel": cfg.LogLevel,
		"backup": map[string]any{
			"keep":     cfg.Backup.Keep,
			"interval": cfg.Backup.Interval.String(),
			"debounce": cfg.Backup.Debounce.String(),
			"auto":     cfg.Backup.Auto,
		},
		"sync":    map[string]any{"chunkSize": cfg.Sync.ChunkSize},
		"scanner": map[string]any{"window": cfg.Scanner.Window.String()},
	}
}
