package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schuecal/avdroll/pkg/config"
	"github.com/schuecal/avdroll/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "avdroll",
	Short: "avdroll - AVD host pool rollout pipeline",
	Long: `avdroll rolls a freshly published VM image out to an Azure Virtual
Desktop host pool: it detects today's image build in the shared repository,
deploys (or updates) the pool from the ARM template, renames the published
desktop and forces every session host onto the new image with a two-wave
restart.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"avdroll version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./avdroll.yaml, $HOME/.avdroll/avdroll.yaml)")
}

// loadConfig reads configuration honoring the --config flag and
// initializes logging from it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Logging.Level),
		JSONOutput: cfg.Logging.JSON,
	})
	return cfg, nil
}
