package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/backup"
)

// StatusResult is the data shown by the status command.
type StatusResult struct {
	Database   string          `json:"database"`
	DeviceID   string          `json:"deviceId"`
	Articles   int             `json:"articles"`
	Sales      int             `json:"sales"`
	Backups    int             `json:"backups"`
	LastBackup string          `json:"lastBackup"`
	AutoBackup bool            `json:"autoBackup"`
	TodayCount int             `json:"todayCount"`
	TodaySum   decimal.Decimal `json:"todayRevenue"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database counts, backup age and today's sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, runStatus)
		},
	}
}

func runStatus(ctx context.Context, a *app) error {
	var (
		res StatusResult
		err error
	)
	res.Database = a.store.Path()
	if res.DeviceID, err = a.store.DeviceID(ctx); err != nil {
		return err
	}
	if res.Articles, err = a.store.CountArticles(ctx); err != nil {
		return err
	}
	if res.Sales, err = a.store.CountSales(ctx); err != nil {
		return err
	}
	if res.Backups, err = a.store.CountBackups(ctx); err != nil {
		return err
	}
	last, ok, err := a.backups.LastBackupTime(ctx)
	if err != nil {
		return err
	}
	res.LastBackup = backup.Staleness(a.backups.Clock().Now(), last, ok)
	if res.AutoBackup, err = a.store.AutoBackupEnabled(ctx); err != nil {
		return err
	}
	today, err := a.register.Today(ctx)
	if err != nil {
		return err
	}
	res.TodayCount = today.Count
	res.TodaySum = today.Revenue

	return a.out.Render(res, func(w io.Writer) {
		auto := "aus"
		if res.AutoBackup {
			auto = "an"
		}
		fmt.Fprintf(w, "Datenbank:     %s\n", res.Database)
		fmt.Fprintf(w, "Gerät:         %s\n", res.DeviceID)
		fmt.Fprintf(w, "Artikel:       %d\n", res.Articles)
		fmt.Fprintf(w, "Verkäufe:      %d\n", res.Sales)
		fmt.Fprintf(w, "Backups:       %d (letztes: %s, automatisch: %s)\n", res.Backups, res.LastBackup, auto)
		fmt.Fprintf(w, "Heute:         %d Verkäufe, %s €\n", res.TodayCount, res.TodaySum.StringFixed(2))
	})
}
