package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozanturksever/segsync"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration skeleton to the path given by --config (default
segsync.json). Fill in the API key, segment id, and segment name before
running a sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
		}

		if err := segsync.WriteConfigToFile(segsync.DefaultFileConfig(), cfgFile); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}
