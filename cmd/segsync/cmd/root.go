// Package cmd provides the CLI commands for segsync.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "segsync",
	Short: "Synchronize a Klaviyo segment with a local membership snapshot",
	Long: `segsync keeps a local snapshot of a Klaviyo segment's membership and
emits "Joined Segment" / "Left Segment" events for every change it detects:

  - fetches the full (paginated) segment membership
  - diffs it against the locally persisted snapshot
  - pushes one lifecycle event per joined or departed member
  - commits the updated snapshot for the next run

Events can optionally be mirrored to a NATS subject for downstream consumers.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default segsync.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindEnv("config", "SEGSYNC_CONFIG")
}

// initConfig resolves the config file path from flag or environment.
func initConfig() {
	viper.AutomaticEnv()
	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
	if cfgFile == "" {
		cfgFile = "segsync.json"
	}
}

// newLogger builds the process logger.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
