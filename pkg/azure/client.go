package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/desktopvirtualization/armdesktopvirtualization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// Config carries the identity and scope inputs for all control-plane calls.
// Values arrive as opaque configuration from the execution environment and
// are never logged.
type Config struct {
	TenantID       string
	SubscriptionID string
	ClientID       string
	ClientSecret   string
	ResourceGroup  string
}

func (c Config) validate() error {
	switch {
	case c.TenantID == "":
		return fmt.Errorf("azure: tenant id is required")
	case c.SubscriptionID == "":
		return fmt.Errorf("azure: subscription id is required")
	case c.ClientID == "":
		return fmt.Errorf("azure: client id is required")
	case c.ClientSecret == "":
		return fmt.Errorf("azure: client secret is required")
	case c.ResourceGroup == "":
		return fmt.Errorf("azure: resource group is required")
	}
	return nil
}

// Clients is the scoped handle over every control-plane client a rollout
// needs. It replaces a process-wide login/logout pair: construct one per
// run, pass it down explicitly, let it go out of scope when the run ends.
type Clients struct {
	cfg          Config
	deployments  *armresources.DeploymentsClient
	sessionHosts *armdesktopvirtualization.SessionHostsClient
	desktops     *armdesktopvirtualization.DesktopsClient
	vms          *armcompute.VirtualMachinesClient
}

// NewClients authenticates a service principal with a client secret and
// builds the ARM clients scoped to the configured subscription.
func NewClients(cfg Config) (*Clients, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create service principal credential: %w", err)
	}
	return newClients(cfg, cred)
}

func newClients(cfg Config, cred azcore.TokenCredential) (*Clients, error) {
	deployments, err := armresources.NewDeploymentsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create deployments client: %w", err)
	}
	sessionHosts, err := armdesktopvirtualization.NewSessionHostsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create session hosts client: %w", err)
	}
	desktops, err := armdesktopvirtualization.NewDesktopsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create desktops client: %w", err)
	}
	vms, err := armcompute.NewVirtualMachinesClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to create virtual machines client: %w", err)
	}

	return &Clients{
		cfg:          cfg,
		deployments:  deployments,
		sessionHosts: sessionHosts,
		desktops:     desktops,
		vms:          vms,
	}, nil
}

// ResourceGroup returns the resource group every call is scoped to.
func (c *Clients) ResourceGroup() string {
	return c.cfg.ResourceGroup
}
