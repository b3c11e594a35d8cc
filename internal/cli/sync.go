package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/roach88/bruch/internal/importer"
	"github.com/roach88/bruch/internal/qrsync"
)

// qrImageSize is the edge length in pixels of PNGs written by sync send.
const qrImageSize = 400

// SyncSendOptions holds flags for the sync send command.
type SyncSendOptions struct {
	*RootOptions
	ChunkSize int
	PNGDir    string
}

// NewSyncCommand creates the sync command group.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Transfer the article catalog as QR codes",
		Long: `Transfer the article catalog between devices as QR codes.

The sender splits the catalog into envelopes of the form
{"chunk":i,"total":n,"data":"..."}, one per QR code. The receiver scans
them in any order and merges the catalog once every chunk arrived.`,
	}
	cmd.AddCommand(newSyncSendCommand(rootOpts))
	cmd.AddCommand(newSyncReceiveCommand(rootOpts))
	return cmd
}

func newSyncSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncSendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Print the catalog as QR envelope texts",
		Long: `Print one envelope text per line. With --png-dir every envelope is
also written as a QR image named chunk-<i>-of-<n>.png.

Example:
  bruch sync send --png-dir ./qr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runSyncSend(ctx, a, opts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "bytes per envelope (default from config)")
	cmd.Flags().StringVar(&opts.PNGDir, "png-dir", "", "directory for QR code PNG files")

	return cmd
}

func runSyncSend(ctx context.Context, a *app, opts *SyncSendOptions) error {
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = a.cfg.Sync.ChunkSize
	}

	device, err := a.store.DeviceID(ctx)
	if err != nil {
		return err
	}
	articles, err := a.store.ListArticles(ctx)
	if err != nil {
		return err
	}
	envelopes, err := qrsync.Encode(articles, chunkSize)
	if err != nil {
		return err
	}

	texts := make([]string, len(envelopes))
	for i, env := range envelopes {
		if texts[i], err = env.Text(); err != nil {
			return WrapExitError(ExitFailure, "failed to encode envelope", err)
		}
	}

	if opts.PNGDir != "" {
		if err := os.MkdirAll(opts.PNGDir, 0o755); err != nil {
			return WrapExitError(ExitFailure, "failed to create PNG directory", err)
		}
		for i, text := range texts {
			name := fmt.Sprintf("chunk-%d-of-%d.png", envelopes[i].Chunk, envelopes[i].Total)
			path := filepath.Join(opts.PNGDir, name)
			if err := qrcode.WriteFile(text, qrcode.Low, qrImageSize, path); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("failed to write QR code %s", name), err)
			}
			a.out.VerboseLog("QR-Code geschrieben: %s", path)
		}
	}
	a.logger.Info("sync envelopes created", "device", device, "articles", len(articles), "envelopes", len(envelopes))

	return a.out.Render(texts, func(w io.Writer) {
		for _, text := range texts {
			fmt.Fprintln(w, text)
		}
	})
}

// SyncReceiveResult summarizes a sync receive run.
type SyncReceiveResult struct {
	Transfers []importer.Result `json:"transfers"`
	Pending   *qrsync.Status    `json:"pending,omitempty"`
	Rejected  int               `json:"rejected"`
}

func newSyncReceiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receive [file]",
		Short: "Merge scanned QR envelope texts into the catalog",
		Long: `Read scanned envelope texts line by line from a file or stdin.

Unreadable scans are reported and skipped. Each completed transfer is
merged into the catalog. The command fails when the input ends in the
middle of a transfer.

Example:
  scanner | bruch sync receive
  bruch sync receive scans.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				in := cmd.InOrStdin()
				if len(args) == 1 && args[0] != "-" {
					f, err := os.Open(args[0])
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to open scan file", err)
					}
					defer f.Close()
					in = f
				}
				return runSyncReceive(ctx, a, in)
			})
		},
	}
}

func runSyncReceive(ctx context.Context, a *app, in io.Reader) error {
	device, err := a.store.DeviceID(ctx)
	if err != nil {
		return err
	}
	receiver := qrsync.NewReceiver(a.importer, a.logger.With("device", device))
	res := SyncReceiveResult{Transfers: []importer.Result{}}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		scan, err := receiver.Scan(ctx, text)
		if errors.Is(err, qrsync.ErrMalformedEnvelope) {
			res.Rejected++
			fmt.Fprintf(a.out.GetErrWriter(), "Zeile %d: kein gültiger Sync-Code übersprungen\n", line)
			continue
		}
		if err != nil {
			return err
		}
		if scan.Imported != nil {
			res.Transfers = append(res.Transfers, *scan.Imported)
			continue
		}
		a.out.VerboseLog("Teil %d/%d empfangen", scan.Status.Received, scan.Status.Total)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to read scans", err)
	}

	if st := receiver.Status(); st.Total > 0 {
		res.Pending = &st
	}

	if err := a.out.Render(res, func(w io.Writer) {
		for _, t := range res.Transfers {
			fmt.Fprintf(w, "Sync abgeschlossen: %d Artikel hinzugefügt, %d aktualisiert\n", t.Added, t.Updated)
		}
		if res.Pending != nil {
			fmt.Fprintf(w, "Unvollständig: %d von %d Teilen, es fehlen %v\n",
				res.Pending.Received, res.Pending.Total, res.Pending.Missing)
		}
	}); err != nil {
		return err
	}
	if res.Pending != nil || len(res.Transfers) == 0 {
		return NewExitError(ExitFailure, "sync transfer incomplete")
	}
	return nil
}
