package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove missing videos and empty channels",
		Long: `Delete catalog rows whose video file is confirmed gone, then delete
channels that no longer have any videos. Files that cannot be checked, for
example on an unavailable network mount, are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := root.context(cmd.Context())
			defer cancel()

			c, err := openCatalog(ctx, catalogOptions{})
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.scanner.Reconcile(ctx)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d videos and %d channels\n", res.RemovedVideos, res.RemovedChannels)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  kept: %s\n", e)
			}
			return nil
		},
	}
}
