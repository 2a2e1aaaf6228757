package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mytube/internal/database"
)

type statusReport struct {
	MediaDir string                    `json:"mediaDir"`
	Database string                    `json:"database"`
	Channels int                       `json:"channels"`
	Videos   int                       `json:"videos"`
	List     []database.ChannelSummary `json:"channelList"`
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := root.context(cmd.Context())
			defer cancel()

			c, err := openCatalog(ctx, catalogOptions{})
			if err != nil {
				return err
			}
			defer c.Close()

			counts, err := c.db.CatalogCounts(ctx)
			if err != nil {
				return err
			}
			channels, err := c.db.ListChannels(ctx)
			if err != nil {
				return err
			}
			report := statusReport{
				MediaDir: c.cfg.MediaDir,
				Database: c.db.Path(),
				Channels: counts.Channels,
				Videos:   counts.Videos,
				List:     channels,
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "Media:    %s\n", report.MediaDir)
			fmt.Fprintf(out, "Database: %s\n", report.Database)
			fmt.Fprintf(out, "Channels: %d\n", report.Channels)
			fmt.Fprintf(out, "Videos:   %d\n", report.Videos)
			if len(channels) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHANNEL\tVIDEOS\tFOLDER")
			for _, ch := range channels {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", ch.Name, ch.VideoCount, ch.FolderPath)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}
