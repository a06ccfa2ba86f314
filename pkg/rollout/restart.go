package rollout

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schuecal/avdroll/pkg/events"
	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/metrics"
	"github.com/schuecal/avdroll/pkg/types"
)

// restartWaves is fixed at two: a single restart is empirically not enough
// for every host to re-register against the new image, so the second pass
// is specified behavior, not a retry.
const restartWaves = 2

// RestartConfig controls the two-wave restart orchestration.
type RestartConfig struct {
	// Warmup separates the two waves so hosts can come back online and
	// re-register before the second pass is enumerated.
	Warmup time.Duration

	// Parallelism bounds concurrent restart calls inside one wave.
	// 1 preserves the historical strictly sequential behavior.
	Parallelism int

	// PollReadiness switches the inter-wave wait from the fixed warmup to
	// bounded polling of host status. On timeout the wave proceeds anyway;
	// the fixed warmup remains the documented fallback.
	PollReadiness     bool
	ReadinessInterval time.Duration
	ReadinessTimeout  time.Duration
}

// DefaultRestartConfig returns the historical restart timings.
func DefaultRestartConfig() RestartConfig {
	return RestartConfig{
		Warmup:            5 * time.Minute,
		Parallelism:       1,
		ReadinessInterval: 15 * time.Second,
		ReadinessTimeout:  10 * time.Minute,
	}
}

// Restarter drives the two-wave session host restart. Hosts are
// enumerated fresh for every wave and never cached across waves.
type Restarter struct {
	hosts  HostClient
	broker *events.Broker
	cfg    RestartConfig
}

// NewRestarter creates a restarter. broker may be nil.
func NewRestarter(hosts HostClient, broker *events.Broker, cfg RestartConfig) *Restarter {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Restarter{hosts: hosts, broker: broker, cfg: cfg}
}

// Run executes both restart waves against the pool. Individual host
// failures do not abort a wave; they are collected into the wave report
// and surfaced as a summary. The returned reports always cover the waves
// actually started.
func (r *Restarter) Run(ctx context.Context, hostPool string) ([]types.WaveReport, error) {
	logger := log.WithComponent("rollout.restart")
	var reports []types.WaveReport

	for wave := 1; wave <= restartWaves; wave++ {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		report, err := r.runWave(ctx, hostPool, wave)
		if report != nil {
			reports = append(reports, *report)
		}
		if err != nil {
			return reports, err
		}

		if wave < restartWaves {
			if r.cfg.PollReadiness {
				r.awaitHostsAvailable(ctx, hostPool)
			} else {
				logger.Info().Dur("warmup", r.cfg.Warmup).Msg("waiting between restart waves")
				if err := sleepCtx(ctx, r.cfg.Warmup); err != nil {
					return reports, err
				}
			}
		}
	}

	return reports, nil
}

func (r *Restarter) runWave(ctx context.Context, hostPool string, wave int) (*types.WaveReport, error) {
	logger := log.WithComponent("rollout.restart")
	waveLabel := strconv.Itoa(wave)

	hosts, err := r.hosts.ListSessionHosts(ctx, hostPool)
	if err != nil {
		return nil, fmt.Errorf("wave %d enumeration failed: %w", wave, err)
	}

	report := &types.WaveReport{
		Wave:      wave,
		Hosts:     len(hosts),
		StartedAt: time.Now(),
	}
	r.publish(events.EventWaveStarted, fmt.Sprintf("wave %d: %d hosts", wave, len(hosts)), nil)
	logger.Info().Int("wave", wave).Int("hosts", len(hosts)).Str("host_pool", hostPool).Msg("starting restart wave")

	statusCounts := map[types.SessionHostStatus]int{}
	for _, host := range hosts {
		statusCounts[host.Status]++
	}
	metrics.SessionHostsSeen.Reset()
	for status, count := range statusCounts {
		metrics.SessionHostsSeen.WithLabelValues(string(status)).Set(float64(count))
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.Parallelism)

	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(host types.SessionHost) {
			defer wg.Done()
			defer func() { <-sem }()

			metrics.RestartsIssued.WithLabelValues(waveLabel).Inc()
			if err := r.hosts.RestartVM(ctx, host.VMName); err != nil {
				metrics.RestartsFailed.WithLabelValues(waveLabel).Inc()
				logger.Warn().Err(err).Int("wave", wave).Str("vm", host.VMName).Msg("host restart failed")
				r.publish(events.EventHostRestartFailed, host.VMName, map[string]string{"wave": waveLabel})

				mu.Lock()
				report.Failures = append(report.Failures, types.HostRestartFailure{
					VMName: host.VMName,
					Wave:   wave,
					Err:    err.Error(),
				})
				mu.Unlock()
				return
			}

			r.publish(events.EventHostRestarted, host.VMName, map[string]string{"wave": waveLabel})
			mu.Lock()
			report.Restarted++
			mu.Unlock()
		}(host)
	}
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)
	r.publish(events.EventWaveCompleted,
		fmt.Sprintf("wave %d: %d/%d restarted", wave, report.Restarted, report.Hosts), nil)
	logger.Info().
		Int("wave", wave).
		Int("restarted", report.Restarted).
		Int("failed", len(report.Failures)).
		Msg("restart wave complete")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// awaitHostsAvailable polls the pool until every host reports Available or
// the readiness timeout elapses. Timing out is not fatal: the next wave
// proceeds, matching the fixed-wait fallback behavior.
func (r *Restarter) awaitHostsAvailable(ctx context.Context, hostPool string) {
	logger := log.WithComponent("rollout.restart")
	deadline := time.Now().Add(r.cfg.ReadinessTimeout)

	for {
		if time.Now().After(deadline) {
			logger.Warn().Str("host_pool", hostPool).Msg("readiness polling timed out, proceeding with next wave")
			return
		}
		if err := sleepCtx(ctx, r.cfg.ReadinessInterval); err != nil {
			return
		}

		hosts, err := r.hosts.ListSessionHosts(ctx, hostPool)
		if err != nil {
			logger.Warn().Err(err).Msg("readiness poll enumeration failed")
			continue
		}

		ready := 0
		for _, host := range hosts {
			if host.Status == types.SessionHostAvailable {
				ready++
			}
		}
		logger.Debug().Int("ready", ready).Int("total", len(hosts)).Msg("readiness poll")
		if len(hosts) > 0 && ready == len(hosts) {
			return
		}
	}
}

func (r *Restarter) publish(eventType events.EventType, message string, metadata map[string]string) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		Message:  message,
		Metadata: metadata,
	})
}
