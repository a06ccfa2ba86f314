package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schuecal/avdroll/pkg/azure"
	"github.com/schuecal/avdroll/pkg/rollout"
)

var restartCmd = &cobra.Command{
	Use:   "restart HOSTPOOL",
	Short: "Run only the two-wave session host restart against a pool",
	Long: `Run only the two-wave session host restart against an existing host
pool, without detecting images or deploying anything. Useful when a
rollout was interrupted after deployment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostPool := args[0]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		restarter := rollout.NewRestarter(clients, nil, rollout.RestartConfig{
			Warmup:            cfg.Rollout.Warmup,
			Parallelism:       cfg.Rollout.Parallelism,
			PollReadiness:     cfg.Rollout.PollReadiness,
			ReadinessInterval: cfg.Rollout.ReadinessInterval,
			ReadinessTimeout:  cfg.Rollout.ReadinessTimeout,
		})

		waves, err := restarter.Run(ctx, hostPool)
		for _, wave := range waves {
			fmt.Printf("Wave %d: %d/%d hosts restarted\n", wave.Wave, wave.Restarted, wave.Hosts)
			for _, failure := range wave.Failures {
				fmt.Printf("  ✗ %s: %s\n", failure.VMName, failure.Err)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(restartCmd)
}
