package rollout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schuecal/avdroll/pkg/events"
	"github.com/schuecal/avdroll/pkg/imagewatch"
	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/metrics"
	"github.com/schuecal/avdroll/pkg/params"
	"github.com/schuecal/avdroll/pkg/types"
)

// ImageDetector finds the newest image build published today
type ImageDetector interface {
	Detect(ctx context.Context) (*types.ImageVersion, error)
}

// Deployer submits a template deployment and blocks until terminal state
type Deployer interface {
	Deploy(ctx context.Context, name string, template, parameters any) (*types.DeploymentResult, error)
}

// DesktopConfigurator applies post-deploy fixups to the application group
type DesktopConfigurator interface {
	RenameSessionDesktop(ctx context.Context, appGroup, friendlyName string) error
}

// HostClient enumerates and restarts session hosts
type HostClient interface {
	ListSessionHosts(ctx context.Context, hostPool string) ([]types.SessionHost, error)
	RestartVM(ctx context.Context, vmName string) error
}

// Config holds the pipeline tunables. The fixed delays stand in for
// readiness signals the control plane does not expose; both are
// configurable rather than hard-coded.
type Config struct {
	Naming params.Settings

	// TemplatePath and ParametersPath locate the deployment template and
	// its sibling parameter document in the shared repository.
	TemplatePath   string
	ParametersPath string
	// StagingPath, when set, receives a copy of the rendered parameters
	// for operator inspection.
	StagingPath string

	// AppGroupSuffix is appended to the host pool name to address its
	// desktop application group.
	AppGroupSuffix string

	// PropagationDelay runs between the configurator and the first
	// restart wave so freshly deployed pool objects settle before any
	// host-targeting call.
	PropagationDelay time.Duration

	Restart RestartConfig
}

// DefaultConfig returns a Config with the delays the pipeline has always
// shipped with.
func DefaultConfig() Config {
	return Config{
		AppGroupSuffix:   "-DAG",
		PropagationDelay: time.Hour,
		Restart:          DefaultRestartConfig(),
	}
}

// Pipeline is the single-run rollout control loop: detect a fresh image,
// materialize the deployment, provision the pool, fix up the published
// desktop, then force all session hosts onto the new image in two restart
// waves. Stages run strictly in sequence; cancellation is honored between
// stages and during waits, never mid-deployment.
type Pipeline struct {
	detector     ImageDetector
	deployer     Deployer
	configurator DesktopConfigurator
	restarter    *Restarter
	broker       *events.Broker
	cfg          Config
	now          func() time.Time
}

// NewPipeline wires a pipeline from its collaborators. broker may be nil
// when no one listens.
func NewPipeline(detector ImageDetector, deployer Deployer, configurator DesktopConfigurator, hosts HostClient, broker *events.Broker, cfg Config) *Pipeline {
	return &Pipeline{
		detector:     detector,
		deployer:     deployer,
		configurator: configurator,
		restarter:    NewRestarter(hosts, broker, cfg.Restart),
		broker:       broker,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run executes one full pipeline pass and returns its record. A stale or
// empty image repository is the no-change outcome: the record reports it
// and err is nil. All fatal conditions stop the run at the current stage;
// no rollback is attempted.
func (p *Pipeline) Run(ctx context.Context) (*types.RunRecord, error) {
	runID := uuid.NewString()[:8]
	logger := log.WithRunID(runID)

	record := &types.RunRecord{
		ID:        runID,
		StartedAt: p.now(),
	}
	p.publish(events.EventRunStarted, "rollout run started", map[string]string{"run_id": runID})

	err := p.run(ctx, runID, logger, record)
	record.FinishedAt = p.now()

	switch {
	case err == nil && record.Outcome == types.RunOutcomeNoChange:
		p.publish(events.EventRunNoChange, "no new image published today", nil)
	case err == nil:
		record.Outcome = types.RunOutcomeSucceeded
		p.publish(events.EventRunSucceeded, "rollout run succeeded", map[string]string{"host_pool": record.HostPoolName})
	default:
		record.Outcome = types.RunOutcomeFailed
		record.Error = err.Error()
		p.publish(events.EventRunFailed, err.Error(), nil)
	}
	metrics.RunsTotal.WithLabelValues(string(record.Outcome)).Inc()

	return record, err
}

func (p *Pipeline) run(ctx context.Context, runID string, logger zerolog.Logger, record *types.RunRecord) error {
	// Stage 1: image watcher gate.
	stage := metrics.NewTimer()
	image, err := p.detector.Detect(ctx)
	stage.ObserveDuration(metrics.StageDuration.WithLabelValues("detect"))
	if err != nil {
		if errors.Is(err, imagewatch.ErrNoNewImage) {
			record.Outcome = types.RunOutcomeNoChange
			logger.Info().Msg("no change today, pipeline is a no-op")
			return nil
		}
		return fmt.Errorf("image detection failed: %w", err)
	}
	record.ImageFolder = image.FolderName
	p.publish(events.EventImageDetected, image.FolderName, nil)

	// Stage 2: materialize the deployment spec in memory.
	spec, err := params.Build(image, p.cfg.Naming, p.now())
	if err != nil {
		return fmt.Errorf("failed to materialize deployment spec: %w", err)
	}
	record.HostPoolName = spec.HostPoolName
	logger.Info().
		Str("host_pool", spec.HostPoolName).
		Str("vm_prefix", spec.VMNamePrefix).
		Str("workspace", spec.WorkspaceName).
		Msg("materialized deployment spec")
	p.publish(events.EventSpecMaterialized, spec.HostPoolName, map[string]string{
		"vm_prefix": spec.VMNamePrefix,
		"image":     spec.VMImageResourceID,
	})

	// Stage 3: submit the deployment and block until terminal state.
	if err := ctx.Err(); err != nil {
		return err
	}
	template, parameters, err := p.loadDeploymentBodies(spec)
	if err != nil {
		return err
	}

	deploymentName := fmt.Sprintf("avd-rollout-%s", runID)
	p.publish(events.EventDeploymentStarted, deploymentName, nil)
	timer := metrics.NewTimer()
	// The in-flight deployment must reach its terminal state even when the
	// run is cancelled; cancellation is honored before and after this stage,
	// never mid-poll.
	result, err := p.deployer.Deploy(context.WithoutCancel(ctx), deploymentName, template, parameters)
	timer.ObserveDuration(metrics.DeploymentDuration)
	if err != nil {
		metrics.DeploymentsFailed.Inc()
		return err
	}
	p.publish(events.EventDeploymentDone, result.ProvisioningState, map[string]string{
		"deployment": deploymentName,
	})

	// Stage 4: rename the published desktop.
	if err := ctx.Err(); err != nil {
		return err
	}
	appGroup := spec.HostPoolName + p.cfg.AppGroupSuffix
	stage = metrics.NewTimer()
	if err := p.configurator.RenameSessionDesktop(ctx, appGroup, spec.DesktopFriendlyName); err != nil {
		return fmt.Errorf("post-deploy configuration failed: %w", err)
	}
	stage.ObserveDuration(metrics.StageDuration.WithLabelValues("configure"))
	p.publish(events.EventDesktopRenamed, spec.DesktopFriendlyName, nil)

	// Let the new pool objects propagate before targeting hosts.
	logger.Info().Dur("delay", p.cfg.PropagationDelay).Msg("waiting for pool propagation")
	if err := sleepCtx(ctx, p.cfg.PropagationDelay); err != nil {
		return err
	}

	// Stage 5: two restart waves.
	stage = metrics.NewTimer()
	waves, err := p.restarter.Run(ctx, spec.HostPoolName)
	stage.ObserveDuration(metrics.StageDuration.WithLabelValues("restart"))
	record.Waves = waves
	if err != nil {
		return err
	}

	return nil
}

func (p *Pipeline) loadDeploymentBodies(spec *types.DeploymentSpec) (template, parameters any, err error) {
	templateDoc, err := os.ReadFile(p.cfg.TemplatePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read deployment template %s: %w", p.cfg.TemplatePath, err)
	}
	var templateBody map[string]any
	if err := json.Unmarshal(templateDoc, &templateBody); err != nil {
		return nil, nil, fmt.Errorf("failed to parse deployment template %s: %w", p.cfg.TemplatePath, err)
	}

	rendered, err := params.RenderFile(spec, p.cfg.ParametersPath, p.cfg.StagingPath)
	if err != nil {
		return nil, nil, err
	}
	parameterBody, err := params.ExtractParameters(rendered)
	if err != nil {
		return nil, nil, err
	}
	return templateBody, parameterBody, nil
}

func (p *Pipeline) publish(eventType events.EventType, message string, metadata map[string]string) {
	if p.broker == nil {
		return
	}
	p.broker.Publish(&events.Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		Message:  message,
		Metadata: metadata,
	})
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
