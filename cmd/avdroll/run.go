package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schuecal/avdroll/pkg/azure"
	"github.com/schuecal/avdroll/pkg/config"
	"github.com/schuecal/avdroll/pkg/events"
	"github.com/schuecal/avdroll/pkg/imagewatch"
	"github.com/schuecal/avdroll/pkg/journal"
	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/metrics"
	"github.com/schuecal/avdroll/pkg/params"
	"github.com/schuecal/avdroll/pkg/rollout"
	"github.com/schuecal/avdroll/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full rollout pipeline pass",
	Long: `Execute one full rollout pipeline pass.

The pipeline is a no-op when the newest image build in the repository was
not published today. Otherwise it deploys the host pool, renames the
published desktop and restarts all session hosts in two waves.

Examples:
  # Run with the default config search paths
  avdroll run

  # Run with an environment manifest
  avdroll run -f rollout-we.yaml`,
	RunE: runRollout,
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "Rollout manifest to apply over the config")
	rootCmd.AddCommand(runCmd)
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if manifestPath, _ := cmd.Flags().GetString("file"); manifestPath != "" {
		if err := applyManifest(&cfg, manifestPath); err != nil {
			return err
		}
	}
	if err := validateRunConfig(cfg); err != nil {
		return err
	}

	// Cancel cleanly between stages on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Errorf("metrics server stopped", err)
			}
		}()
	}

	clients, err := azure.NewClients(azure.Config{
		TenantID:       cfg.Azure.TenantID,
		SubscriptionID: cfg.Azure.SubscriptionID,
		ClientID:       cfg.Azure.ClientID,
		ClientSecret:   cfg.Azure.ClientSecret,
		ResourceGroup:  cfg.Azure.ResourceGroup,
	})
	if err != nil {
		return err
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	go logEvents(broker.Subscribe())

	pipeline := rollout.NewPipeline(
		imagewatch.NewWatcher(cfg.Repository.ImagesPath),
		clients,
		clients,
		clients,
		broker,
		pipelineConfig(cfg),
	)

	record, runErr := pipeline.Run(ctx)
	recordRun(cfg, record)
	printRunSummary(record)

	return runErr
}

func pipelineConfig(cfg config.Config) rollout.Config {
	return rollout.Config{
		Naming: params.Settings{
			Env:                     cfg.Naming.Env,
			DesktopNameBase:         cfg.Naming.DesktopNameBase,
			ImageResourceIDTemplate: cfg.Naming.ImageResourceIDTemplate,
		},
		TemplatePath:     cfg.Repository.TemplatePath,
		ParametersPath:   cfg.Repository.ParametersPath,
		StagingPath:      cfg.Repository.StagingPath,
		AppGroupSuffix:   cfg.Naming.AppGroupSuffix,
		PropagationDelay: cfg.Rollout.PropagationDelay,
		Restart: rollout.RestartConfig{
			Warmup:            cfg.Rollout.Warmup,
			Parallelism:       cfg.Rollout.Parallelism,
			PollReadiness:     cfg.Rollout.PollReadiness,
			ReadinessInterval: cfg.Rollout.ReadinessInterval,
			ReadinessTimeout:  cfg.Rollout.ReadinessTimeout,
		},
	}
}

func validateRunConfig(cfg config.Config) error {
	switch {
	case cfg.Repository.ImagesPath == "":
		return fmt.Errorf("repository.images_path is required")
	case cfg.Repository.TemplatePath == "":
		return fmt.Errorf("repository.template_path is required")
	case cfg.Repository.ParametersPath == "":
		return fmt.Errorf("repository.parameters_path is required")
	case cfg.Naming.ImageResourceIDTemplate == "":
		return fmt.Errorf("naming.image_resource_id_template is required")
	}
	return nil
}

// recordRun persists the run to the local journal. Journal problems are
// reported but never fail a run that already happened.
func recordRun(cfg config.Config, record *types.RunRecord) {
	if record == nil {
		return
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Errorf("failed to create data dir", err)
		return
	}
	j, err := journal.Open(cfg.DataDir)
	if err != nil {
		log.Errorf("failed to open journal", err)
		return
	}
	defer j.Close()
	if err := j.Record(record); err != nil {
		log.Errorf("failed to record run", err)
	}
}

func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for event := range sub {
		logger.Debug().
			Str("type", string(event.Type)).
			Str("message", event.Message).
			Msg("rollout event")
	}
}

func printRunSummary(record *types.RunRecord) {
	if record == nil {
		return
	}

	switch record.Outcome {
	case types.RunOutcomeNoChange:
		fmt.Println("No new image published today, nothing to do.")
		return
	case types.RunOutcomeFailed:
		fmt.Printf("Run %s failed: %s\n", record.ID, record.Error)
	case types.RunOutcomeSucceeded:
		fmt.Printf("✓ Run %s succeeded\n", record.ID)
		fmt.Printf("  Image:     %s\n", record.ImageFolder)
		fmt.Printf("  Host pool: %s\n", record.HostPoolName)
	}

	for _, wave := range record.Waves {
		fmt.Printf("  Wave %d: %d/%d hosts restarted\n", wave.Wave, wave.Restarted, wave.Hosts)
		for _, failure := range wave.Failures {
			fmt.Printf("    ✗ %s: %s\n", failure.VMName, failure.Err)
		}
	}
}
