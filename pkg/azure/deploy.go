package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/types"
)

// DeploymentError is the terminal-failure outcome of a resource-manager
// deployment. The remote diagnostic payload is carried verbatim so the
// operator sees exactly what the deployment engine reported.
type DeploymentError struct {
	Name       string
	State      string
	Diagnostic string
	Cause      error
}

func (e *DeploymentError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("deployment %s failed (state %s): %s", e.Name, e.State, e.Diagnostic)
	}
	return fmt.Sprintf("deployment %s failed (state %s)", e.Name, e.State)
}

func (e *DeploymentError) Unwrap() error {
	return e.Cause
}

// Deploy submits the template and parameter bodies as an incremental-mode
// deployment and blocks until the remote operation reaches a terminal
// state. Create-or-update semantics make a re-run with identical
// parameters a no-op on the pool rather than a duplicate. Failure is fatal
// for the run; there is no automatic retry.
func (c *Clients) Deploy(ctx context.Context, name string, template, parameters any) (*types.DeploymentResult, error) {
	logger := log.WithComponent("azure.deploy")
	start := time.Now()

	logger.Info().
		Str("deployment", name).
		Str("resource_group", c.cfg.ResourceGroup).
		Msg("submitting deployment")

	poller, err := c.deployments.BeginCreateOrUpdate(ctx, c.cfg.ResourceGroup, name, armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Mode:       to.Ptr(armresources.DeploymentModeIncremental),
			Template:   template,
			Parameters: parameters,
		},
	}, nil)
	if err != nil {
		return nil, &DeploymentError{Name: name, State: "SubmitFailed", Diagnostic: err.Error(), Cause: err}
	}

	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, &DeploymentError{Name: name, State: "Failed", Diagnostic: err.Error(), Cause: err}
	}

	result := &types.DeploymentResult{
		DeploymentName: name,
		Duration:       time.Since(start),
	}
	if props := resp.Properties; props != nil {
		if props.ProvisioningState != nil {
			result.ProvisioningState = string(*props.ProvisioningState)
		}
		if props.CorrelationID != nil {
			result.CorrelationID = *props.CorrelationID
		}
	}

	if result.ProvisioningState != string(armresources.ProvisioningStateSucceeded) {
		return nil, &DeploymentError{Name: name, State: result.ProvisioningState}
	}

	logger.Info().
		Str("deployment", name).
		Str("state", result.ProvisioningState).
		Dur("duration", result.Duration).
		Msg("deployment reached terminal state")
	return result, nil
}
