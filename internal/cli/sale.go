package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/exchange"
	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/pos"
)

// SaleListOptions holds flags for the sale list command.
type SaleListOptions struct {
	*RootOptions
	Filter string
}

// CheckoutOptions holds flags for the sale checkout command.
type CheckoutOptions struct {
	*RootOptions
	Personnel string
	Paid      bool
	Stdin     bool
}

// NewSaleCommand creates the sale command group.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sale",
		Aliases: []string{"verkauf"},
		Short:   "Record and manage sales",
	}
	cmd.AddCommand(newSaleListCommand(rootOpts))
	cmd.AddCommand(newCheckoutCommand(rootOpts))
	cmd.AddCommand(newSalePaidCommand(rootOpts))
	cmd.AddCommand(newSaleDeleteCommand(rootOpts))
	cmd.AddCommand(newSaleClearCommand(rootOpts))
	cmd.AddCommand(newSaleSummaryCommand(rootOpts))
	cmd.AddCommand(newSaleTodayCommand(rootOpts))
	return cmd
}

func newSaleListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sales, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				filter, err := pos.ParseFilter(opts.Filter)
				if err != nil {
					return err
				}
				sales, err := a.register.Sales(ctx, filter)
				if err != nil {
					return err
				}
				return a.out.Render(sales, func(w io.Writer) {
					writeSaleTable(w, sales)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "all", "payment state (all|paid|open)")

	return cmd
}

func writeSaleTable(w io.Writer, sales []models.Sale) {
	if len(sales) == 0 {
		fmt.Fprintln(w, "Keine Verkäufe.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Nr\tDatum\tPersonal\tArtikel\tSumme\tBezahlt")
	for _, s := range sales {
		paid := "Nein"
		if s.Paid {
			paid = "Ja"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s €\t%s\n",
			s.ID, exchange.FormatDate(s.Date), s.PersonnelNumber, s.ItemCount(), s.Total.StringFixed(2), paid)
	}
	tw.Flush()
}

func newCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout [ean[:qty]...]",
		Short: "Sell the given articles",
		Long: `Build a cart and record it as one sale.

Each argument is an EAN, optionally followed by ":" and a quantity.
With --stdin, scanned codes are read line by line and each accepted
scan adds one unit. A repeat of the same code within the scanner
window is ignored.

Example:
  bruch sale checkout --personnel 4711 4006381333931:3 4006381333948
  scanner | bruch sale checkout --personnel 4711 --stdin --paid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runCheckout(ctx, cmd, a, opts, args)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Personnel, "personnel", "", "personnel number (required)")
	cmd.Flags().BoolVar(&opts.Paid, "paid", false, "mark the sale as paid")
	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read scanned codes from stdin")
	_ = cmd.MarkFlagRequired("personnel")

	return cmd
}

func runCheckout(ctx context.Context, cmd *cobra.Command, a *app, opts *CheckoutOptions, args []string) error {
	var cart models.Cart

	for _, arg := range args {
		ean, qty, err := parseCartArg(arg)
		if err != nil {
			return err
		}
		art, err := a.register.Lookup(ctx, ean)
		if err != nil {
			return err
		}
		for i := 0; i < qty; i++ {
			cart.Add(art)
		}
	}

	if opts.Stdin {
		filter := pos.NewScanFilter(a.backups.Clock(), a.cfg.Scanner.Window)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			code, ok := filter.Accept(scanner.Text())
			if !ok {
				if code != "" {
					a.logger.Debug("duplicate scan ignored", "ean", code)
				}
				continue
			}
			art, err := a.register.Lookup(ctx, code)
			if apperr.IsNotFound(err) {
				a.out.VerboseLog("unbekannter Artikel: %s", code)
				fmt.Fprintf(a.out.GetErrWriter(), "Unbekannter Artikel %s übersprungen\n", code)
				continue
			}
			if err != nil {
				return err
			}
			cart.Add(art)
		}
		if err := scanner.Err(); err != nil {
			return WrapExitError(ExitFailure, "failed to read scans", err)
		}
	}

	sale, err := a.register.Checkout(ctx, opts.Personnel, cart.Items(), opts.Paid)
	var backupErr *pos.ActionBackupError
	if err != nil && !errors.As(err, &backupErr) {
		return err
	}
	if rerr := a.out.Render(sale, func(w io.Writer) {
		fmt.Fprintf(w, "Verkauf %d gespeichert: %d Artikel, %s €\n", sale.ID, sale.ItemCount(), sale.Total.StringFixed(2))
	}); rerr != nil {
		return rerr
	}
	return err
}

// parseCartArg splits "ean:qty". A missing quantity means one unit.
func parseCartArg(arg string) (string, int, error) {
	ean, qtyText, found := strings.Cut(strings.TrimSpace(arg), ":")
	if !found {
		return ean, 1, nil
	}
	qty, err := strconv.Atoi(qtyText)
	if err != nil || qty < 1 {
		return "", 0, apperr.Validation("checkout", "invalid quantity in %q", arg)
	}
	return ean, qty, nil
}

func parseSaleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, apperr.Validation("parse sale id", "%q is not a sale number", arg)
	}
	return id, nil
}

func newSalePaidCommand(rootOpts *RootOptions) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "paid <id>",
		Short: "Mark a sale as paid (or open with --open)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := parseSaleID(args[0])
				if err != nil {
					return err
				}
				if err := a.register.SetPaid(ctx, id, !open); err != nil {
					return err
				}
				state := "bezahlt"
				if open {
					state = "offen"
				}
				return a.out.Render(map[string]any{"id": id, "paid": !open}, func(w io.Writer) {
					fmt.Fprintf(w, "Verkauf %d ist %s\n", id, state)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "mark the sale as open instead")

	return cmd
}

func newSaleDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				id, err := parseSaleID(args[0])
				if err != nil {
					return err
				}
				if err := a.register.DeleteSale(ctx, id); err != nil {
					return err
				}
				return a.out.Render(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Verkauf %d gelöscht\n", id)
				})
			})
		},
	}
}

func newSaleClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to delete all sales without --yes")
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.register.ClearSales(ctx); err != nil {
					return err
				}
				return a.out.Render(map[string]bool{"cleared": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Alle Verkäufe gelöscht")
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all sales")

	return cmd
}

func newSaleSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show revenue split by payment state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				sum, err := a.register.Summary(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(sum, func(w io.Writer) {
					fmt.Fprintf(w, "Verkäufe: %d\n", sum.Count)
					fmt.Fprintf(w, "Umsatz:   %s €\n", sum.Revenue.StringFixed(2))
					fmt.Fprintf(w, "Bezahlt:  %s €\n", sum.PaidRevenue.StringFixed(2))
					fmt.Fprintf(w, "Offen:    %s € (%d Verkäufe)\n", sum.OpenRevenue.StringFixed(2), sum.OpenCount)
				})
			})
		},
	}
}

func newSaleTodayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's sales count and revenue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				stats, err := a.register.Today(ctx)
				if err != nil {
					return err
				}
				return a.out.Render(stats, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %d Verkäufe, %s €\n", stats.Date, stats.Count, stats.Revenue.StringFixed(2))
				})
			})
		},
	}
}
