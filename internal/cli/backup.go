package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/exchange"
	"github.com/roach88/bruch/internal/store"
)

// NewBackupCommand creates the backup command group.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, restore and move backups",
		Long: `Backups are full snapshots of all articles and sales.

Only the newest backups are kept (10 by default, see backup.keep). A
restore always takes a safety backup of the current state first.`,
	}
	cmd.AddCommand(newBackupCreateCommand(rootOpts))
	cmd.AddCommand(newBackupListCommand(rootOpts))
	cmd.AddCommand(newBackupRestoreCommand(rootOpts))
	cmd.AddCommand(newBackupDeleteCommand(rootOpts))
	cmd.AddCommand(newBackupExportCommand(rootOpts))
	cmd.AddCommand(newBackupImportCommand(rootOpts))
	cmd.AddCommand(newBackupAutoCommand(rootOpts))
	return cmd
}

func parseBackupID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, apperr.Validation("parse backup id", "%q is not a backup number", arg)
	}
	return id, nil
}

func newBackupCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Take a manual backup now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := a.backups.CreateBackup(ctx, false)
				if err != nil {
					return err
				}
				return a.out.Render(map[string]int64{"id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d erstellt\n", id)
				})
			})
		},
	}
}

func newBackupListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				backups, err := a.backups.List(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(backups, func(w io.Writer) {
					writeBackupTable(w, backups)
				})
			})
		},
	}
}

func writeBackupTable(w io.Writer, backups []store.BackupSummary) {
	if len(backups) == 0 {
		fmt.Fprintln(w, "Keine Backups.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Nr\tDatum\tArt\tArtikel\tVerkäufe")
	for _, b := range backups {
		kind := "manuell"
		if b.AutoBackup {
			kind = "auto"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", b.ID, exchange.FormatDate(b.Date), kind, b.ArticleCount, b.SaleCount)
	}
	tw.Flush()
}

func newBackupRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace all articles and sales with a backup",
		Long: `Replace all articles and sales with the contents of a backup.

A safety backup of the current state is taken first, so a restore can
itself be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to overwrite all data without --yes")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := parseBackupID(args[0])
				if err != nil {
					return err
				}
				res, err := a.backups.Restore(ctx, id)
				if err != nil {
					return err
				}
				return a.out.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d wiederhergestellt: %d Artikel, %d Verkäufe (Sicherung vorher: Backup %d)\n",
						id, res.Articles, res.Sales, res.SafetyBackupID)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm overwriting all articles and sales")

	return cmd
}

func newBackupDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := parseBackupID(args[0])
				if err != nil {
					return err
				}
				if err := a.backups.DeleteBackup(ctx, id); err != nil {
					return err
				}
				return a.out.Render(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d gelöscht\n", id)
				})
			})
		},
	}
}

func newBackupExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a backup to a JSON file",
		Long: `Write a backup to a JSON file.

Without -o the file is named bruch-backup-YYYY-MM-DD.json after the
backup date. Use -o - to write to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := parseBackupID(args[0])
				if err != nil {
					return err
				}
				b, err := a.backups.Get(ctx, id)
				if err != nil {
					return err
				}
				path := output
				if path == "" {
					path = exchange.BackupFileName(b.Date)
				}
				if err := writeOutput(cmd, path, func(w io.Writer) error {
					return exchange.WriteBackup(w, b)
				}); err != nil {
					return err
				}
				if path == "-" {
					return nil
				}
				return a.out.Render(map[string]any{"id": id, "file": path}, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d exportiert nach %s\n", id, path)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")

	return cmd
}

func newBackupImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store a backup file as a new backup",
		Long: `Store an exported backup file as a new backup.

The current data is not changed. Use "bruch backup restore" on the new
backup to apply it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open backup file", err)
				}
				defer f.Close()

				b, err := exchange.ReadBackup(f)
				if err != nil {
					return err
				}
				id, err := a.backups.ImportBackup(ctx, b)
				if err != nil {
					return err
				}
				return a.out.Render(map[string]any{"id": id, "articles": len(b.Articles), "sales": len(b.Sales)}, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %d importiert: %d Artikel, %d Verkäufe\n", id, len(b.Articles), len(b.Sales))
				})
			})
		},
	}
}

func newBackupAutoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "auto [on|off]",
		Short:     "Show or change the auto-backup preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					enabled, err := parseOnOff(args[0])
					if err != nil {
						return err
					}
					if err := a.store.SetAutoBackupEnabled(ctx, enabled); err != nil {
						return err
					}
				}
				enabled, err := a.store.AutoBackupEnabled(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(map[string]bool{"autoBackup": enabled}, func(w io.Writer) {
					state := "aus"
					if enabled {
						state = fmt.Sprintf("an (alle %s)", a.cfg.Backup.Interval)
					}
					fmt.Fprintf(w, "Automatisches Backup: %s\n", state)
				})
			})
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "an", "true", "1":
		return true, nil
	case "off", "aus", "false", "0":
		return false, nil
	default:
		return false, apperr.Validation("auto backup", "%q is not on or off", s)
	}
}

// writeOutput writes to path, or to the command's stdout when path is "-".
func writeOutput(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create output file", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return WrapExitError(ExitFailure, "failed to write output file", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to write output file", err)
	}
	return nil
}
