package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mytube/internal/indexer"
)

type scanOptions struct {
	cleanup     bool
	jsonOutput  bool
	failOnError bool
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Index new videos under the media directory",
		Long: `Walk MEDIA_DIR, create a channel for every top-level folder, and index
every video not yet in the catalog with its metadata and a thumbnail.

Files that cannot be probed or thumbnailed are still indexed; the problems
are listed after the statistics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.cleanup, "cleanup", false, "Remove missing videos and empty channels after the scan")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the statistics as JSON")
	cmd.Flags().BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when the scan reported errors")
	return cmd
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions) error {
	ctx, cancel := root.context(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	bar := newSpinner(out)

	co := catalogOptions{cleanupAfterScan: opts.cleanup}
	if bar != nil {
		co.scannerOpts = append(co.scannerOpts, indexer.WithProgress(func(string) {
			_ = bar.Add(1)
		}))
	}

	c, err := openCatalog(ctx, co)
	if err != nil {
		return err
	}
	defer c.Close()

	stats := c.scanner.ScanAndIndex(ctx)
	if bar != nil {
		_ = bar.Finish()
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return err
		}
	} else {
		printScanStats(out, c.cfg.MediaDir, stats)
	}

	if opts.failOnError && len(stats.Errors) > 0 {
		return fmt.Errorf("scan finished with %d errors", len(stats.Errors))
	}
	return ctx.Err()
}

func printScanStats(w io.Writer, mediaDir string, stats indexer.ScanStatistics) {
	fmt.Fprintf(w, "Scanned %s in %v\n", mediaDir, stats.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Channels: %d\n", stats.Channels)
	fmt.Fprintf(w, "  Videos:   %d added, %d already indexed\n", stats.Videos, stats.Skipped)
	if len(stats.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "  Errors:   %d\n", len(stats.Errors))
	for _, e := range stats.Errors {
		fmt.Fprintf(w, "    - %s\n", e)
	}
}

// newSpinner returns nil unless w is a terminal.
func newSpinner(w io.Writer) *progressbar.ProgressBar {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(f),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)
}
