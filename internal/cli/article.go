package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/pos"
)

// ArticleListOptions holds flags for the article list command.
type ArticleListOptions struct {
	*RootOptions
	Search string
	Sort   string // "insertion" | "name"
}

// ArticleAddOptions holds flags for the article add command.
type ArticleAddOptions struct {
	*RootOptions
	Unit          string
	ArticleNumber string
}

// NewArticleCommand creates the article command group.
func NewArticleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "article",
		Aliases: []string{"artikel"},
		Short:   "Manage the article catalog",
	}
	cmd.AddCommand(newArticleListCommand(rootOpts))
	cmd.AddCommand(newArticleGetCommand(rootOpts))
	cmd.AddCommand(newArticleAddCommand(rootOpts))
	cmd.AddCommand(newArticleDeleteCommand(rootOpts))
	return cmd
}

func newArticleListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArticleListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Long: `List articles in insertion order or by name.

--search matches the name case-insensitively and the EAN or article
number as typed.

Example:
  bruch article list --search schraube
  bruch article list --sort name --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runArticleList(ctx, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by name, EAN or article number")
	cmd.Flags().StringVar(&opts.Sort, "sort", "insertion", "sort order (insertion|name)")

	return cmd
}

func runArticleList(ctx context.Context, a *app, opts *ArticleListOptions) error {
	var (
		articles []models.Article
		err      error
	)
	switch {
	case opts.Search != "":
		articles, err = a.store.SearchArticles(ctx, opts.Search)
	case opts.Sort == "name":
		articles, err = a.store.ListArticlesByName(ctx)
	case opts.Sort == "insertion":
		articles, err = a.store.ListArticles(ctx)
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid sort %q: must be insertion or name", opts.Sort))
	}
	if err != nil {
		return err
	}
	return a.out.Render(articles, func(w io.Writer) {
		writeArticleTable(w, articles)
	})
}

func writeArticleTable(w io.Writer, articles []models.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "Keine Artikel.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EAN\tArtNr\tBezeichnung\tEinheit\tPreis")
	for _, art := range articles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s €\n", art.EAN, art.ArticleNumber, art.Name, art.Unit, art.Price.StringFixed(2))
	}
	tw.Flush()
}

func newArticleGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <ean>",
		Short: "Look up an article by its barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				art, err := a.register.Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				return a.out.Render(art, func(w io.Writer) {
					writeArticleTable(w, []models.Article{art})
				})
			})
		},
	}
}

func newArticleAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArticleAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <ean> <name> <price>",
		Short: "Create or overwrite an article",
		Long: `Create an article, or overwrite the article with the same EAN.

The price accepts a comma or a dot as decimal separator. An action
backup is taken after the article is saved.

Example:
  bruch article add 4006381333931 "Schraube M4" 0,50
  bruch article add 4006381333948 "Kabel" 2.99 --unit m --number K-12`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				art, err := pos.NewArticle(args[0], args[1], args[2], opts.Unit, opts.ArticleNumber)
				if err != nil {
					return err
				}
				saved, err := a.register.SaveArticle(ctx, art)
				var backupErr *pos.ActionBackupError
				if err != nil && !errors.As(err, &backupErr) {
					return err
				}
				if rerr := a.out.Render(saved, func(w io.Writer) {
					fmt.Fprintf(w, "Artikel gespeichert: %s %s (%s €)\n", saved.EAN, saved.Name, saved.Price.StringFixed(2))
				}); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&opts.Unit, "unit", models.DefaultUnit, "unit of sale")
	cmd.Flags().StringVar(&opts.ArticleNumber, "number", "", "article number")

	return cmd
}

func newArticleDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ean>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				err := a.register.DeleteArticle(ctx, args[0])
				var backupErr *pos.ActionBackupError
				if err != nil && !errors.As(err, &backupErr) {
					return err
				}
				if rerr := a.out.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Artikel gelöscht: %s\n", args[0])
				}); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}
}
