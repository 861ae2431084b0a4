package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ozanturksever/segsync"
	"github.com/ozanturksever/segsync/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the locally cached segment membership",
	Long: `Print a summary of the snapshot file: how many members were known after
the last successful run and when the snapshot was last committed. The remote
API is not contacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := segsync.LoadConfigFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		snap := snapshot.NewStore(cfg.CacheFile).Load()

		fmt.Printf("Segment:      %s (%s)\n", cfg.SegmentName, cfg.SegmentID)
		fmt.Printf("Cache file:   %s\n", cfg.CacheFile)
		fmt.Printf("Members:      %d\n", len(snap.Profiles))
		if snap.LastUpdated != nil {
			fmt.Printf("Last updated: %s\n", snap.LastUpdated.Format(time.RFC3339))
		} else {
			fmt.Println("Last updated: never")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
