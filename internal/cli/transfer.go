package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/exchange"
	"github.com/roach88/bruch/internal/importer"
	"github.com/roach88/bruch/internal/pos"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Mode     string
	FileType string
	Backup   bool
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	FileType string
	Output   string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an article catalog from JSON or CSV",
		Long: `Import articles from a JSON or CSV file.

merge keeps existing articles and overwrites those with the same EAN.
overwrite replaces the whole catalog. The file type follows the
extension unless --as is given. CSV files may use ";" or "," and German
column names.

Example:
  bruch import artikel.csv
  bruch import katalog.json --mode overwrite --backup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runImport(ctx, a, opts, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(importer.Merge), "import mode (merge|overwrite)")
	cmd.Flags().StringVar(&opts.FileType, "as", "", "file type (json|csv), default from extension")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "take a backup after a successful import")

	return cmd
}

func runImport(ctx context.Context, a *app, opts *ImportOptions, path string) error {
	mode, err := importer.ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	format, err := fileFormat(opts.FileType, path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open import file", err)
	}
	defer f.Close()

	articles, err := exchange.ParseArticles(f, format)
	if err != nil {
		return err
	}
	a.out.VerboseLog("%d Artikel gelesen aus %s", len(articles), path)

	res, err := a.importer.Import(ctx, articles, mode)
	if err != nil {
		return err
	}
	if err := a.out.Render(res, func(w io.Writer) {
		fmt.Fprintf(w, "%d Artikel hinzugefügt, %d aktualisiert\n", res.Added, res.Updated)
	}); err != nil {
		return err
	}

	if opts.Backup {
		id, err := a.backups.CreateActionBackup(ctx)
		if err != nil {
			return &pos.ActionBackupError{Action: "import", Err: err}
		}
		a.out.VerboseLog("Backup %d nach dem Import erstellt", id)
	}
	return nil
}

// fileFormat returns the explicit format, or the one implied by path.
func fileFormat(explicit, path string) (exchange.Format, error) {
	if explicit != "" {
		return exchange.ParseFormat(explicit)
	}
	return exchange.FormatFromPath(path)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:       "export <articles|sales>",
		Short:     "Export articles or sales as JSON or CSV",
		ValidArgs: []string{"articles", "sales"},
		Long: `Export the article catalog or the sales list.

Without -o the file is written to the working directory as
artikel_export.<ext> or verkaeufe_export.<ext>. Use -o - for stdout.

Example:
  bruch export articles --as csv
  bruch export sales --as json -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runExport(ctx, cmd, a, opts, args[0])
			})
		},
	}

	cmd.Flags().StringVar(&opts.FileType, "as", string(exchange.FormatJSON), "file type (json|csv)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (- for stdout)")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, a *app, opts *ExportOptions, what string) error {
	format, err := exchange.ParseFormat(opts.FileType)
	if err != nil {
		return err
	}

	var (
		write    func(w io.Writer) error
		fileName string
		count    int
	)
	switch what {
	case "articles", "artikel":
		articles, err := a.store.ListArticles(ctx)
		if err != nil {
			return err
		}
		count = len(articles)
		fileName = exchange.ArticlesJSONFile
		write = func(w io.Writer) error { return exchange.WriteArticlesJSON(w, articles) }
		if format == exchange.FormatCSV {
			fileName = exchange.ArticlesCSVFile
			write = func(w io.Writer) error { return exchange.WriteArticlesCSV(w, articles) }
		}
	case "sales", "verkaeufe":
		sales, err := a.store.ListSales(ctx)
		if err != nil {
			return err
		}
		count = len(sales)
		fileName = exchange.SalesJSONFile
		write = func(w io.Writer) error { return exchange.WriteSalesJSON(w, sales) }
		if format == exchange.FormatCSV {
			fileName = exchange.SalesCSVFile
			write = func(w io.Writer) error { return exchange.WriteSalesCSV(w, sales) }
		}
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown export %q: must be articles or sales", what))
	}

	path := opts.Output
	if path == "" {
		path = fileName
	}
	if err := writeOutput(cmd, path, write); err != nil {
		return err
	}
	if path == "-" {
		return nil
	}
	return a.out.Render(map[string]any{"file": path, "count": count}, func(w io.Writer) {
		fmt.Fprintf(w, "%d Einträge exportiert nach %s\n", count, path)
	})
}
