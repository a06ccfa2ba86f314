package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schuecal/avdroll/pkg/imagewatch"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a rollout would happen today",
	Long: `Run only the image watcher gate and report its decision without
touching any cloud resource.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Repository.ImagesPath == "" {
			return fmt.Errorf("repository.images_path is required")
		}

		watcher := imagewatch.NewWatcher(cfg.Repository.ImagesPath)
		image, err := watcher.Detect(context.Background())
		if err != nil {
			if errors.Is(err, imagewatch.ErrNoNewImage) {
				fmt.Println("No new image published today, a run would be a no-op.")
				return nil
			}
			return err
		}

		fmt.Printf("✓ Fresh image found: %s (written %s)\n",
			image.FolderName, image.LastWrite.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Println("A run would roll this image out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
