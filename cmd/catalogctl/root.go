package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mytube/internal/database"
	"mytube/internal/indexer"
	"mytube/internal/logging"
	"mytube/internal/media"
	"mytube/internal/startup"
)

type rootOptions struct {
	configFile string
	verbose    bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Maintain the mytube video catalog",
		Long:          "Scan the media directory into the catalog, reconcile it with the filesystem, and report its contents.",
		Version:       startup.GetBuildInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(opts.verbose)
			if opts.configFile != "" {
				return os.Setenv("CONFIG_FILE", opts.configFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Abort after this long (0 waits indefinitely)")

	cmd.AddCommand(newScanCmd(opts), newCleanupCmd(opts), newStatusCmd(opts))
	return cmd
}

// setupLogging keeps the log quiet unless asked otherwise, so command output
// stays readable.
func setupLogging(verbose bool) {
	switch {
	case verbose:
		logging.SetLevel(logging.LevelDebug)
	case os.Getenv("LOG_LEVEL") == "" && os.Getenv("DEBUG") == "":
		logging.SetLevel(logging.LevelWarn)
	}
}

func (o *rootOptions) context(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(parent, o.timeout)
	}
	return context.WithCancel(parent)
}

// catalog is an opened database with a scanner over it.
type catalog struct {
	cfg     *startup.Config
	db      *database.Database
	scanner *indexer.Scanner
}

type catalogOptions struct {
	cleanupAfterScan bool
	scannerOpts      []indexer.Option
}

func openCatalog(ctx context.Context, co catalogOptions) (*catalog, error) {
	cfg, err := startup.ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.PrepareDirectories(); err != nil {
		return nil, err
	}

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", cfg.DatabasePath, err)
	}

	scanCfg := cfg.IndexerConfig()
	scanCfg.CleanupAfterScan = scanCfg.CleanupAfterScan || co.cleanupAfterScan
	prober := media.NewProber(media.ExecRunner{}, cfg.FFprobePath, time.Duration(cfg.ProbeTimeout))
	thumbs := media.NewThumbnailGenerator(media.ExecRunner{}, cfg.FFmpegPath, time.Duration(cfg.ThumbnailTimeout))

	return &catalog{
		cfg:     cfg,
		db:      db,
		scanner: indexer.New(scanCfg, db, prober, thumbs, co.scannerOpts...),
	}, nil
}

func (c *catalog) Close() error {
	c.scanner.Stop()
	return c.db.Close()
}
