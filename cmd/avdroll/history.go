package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schuecal/avdroll/pkg/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if _, err := os.Stat(filepath.Join(cfg.DataDir, "avdroll.db")); os.IsNotExist(err) {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		j, err := journal.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		defer j.Close()

		records, err := j.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		for _, record := range records {
			fmt.Printf("%s  %-10s  %-10s  %s\n",
				record.StartedAt.UTC().Format("2006-01-02 15:04"),
				record.ID,
				record.Outcome,
				record.ImageFolder)
			if record.Error != "" {
				fmt.Printf("  error: %s\n", record.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
