package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/desktopvirtualization/armdesktopvirtualization/v2"

	"github.com/schuecal/avdroll/pkg/naming"
	"github.com/schuecal/avdroll/pkg/types"
)

// ListSessionHosts enumerates every session host currently bound to the
// pool. Records are read fresh on every call; callers must not cache them
// across restart waves.
func (c *Clients) ListSessionHosts(ctx context.Context, hostPool string) ([]types.SessionHost, error) {
	var hosts []types.SessionHost

	pager := c.sessionHosts.NewListPager(c.cfg.ResourceGroup, hostPool, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list session hosts for pool %s: %w", hostPool, err)
		}
		for _, host := range page.Value {
			if host == nil || host.Name == nil {
				continue
			}
			hosts = append(hosts, types.SessionHost{
				Name:   *host.Name,
				VMName: naming.BareHostName(*host.Name),
				Status: convertStatus(host.Properties),
			})
		}
	}
	return hosts, nil
}

// RestartVM issues a restart request for the named virtual machine and
// returns as soon as the request is accepted. The poller is deliberately
// dropped: restarts are fire-and-forget, completion is never confirmed.
func (c *Clients) RestartVM(ctx context.Context, vmName string) error {
	_, err := c.vms.BeginRestart(ctx, c.cfg.ResourceGroup, vmName, nil)
	if err != nil {
		return fmt.Errorf("failed to restart vm %s: %w", vmName, err)
	}
	return nil
}

func convertStatus(props *armdesktopvirtualization.SessionHostProperties) types.SessionHostStatus {
	if props == nil || props.Status == nil {
		return types.SessionHostUnknown
	}
	switch *props.Status {
	case armdesktopvirtualization.StatusAvailable:
		return types.SessionHostAvailable
	case armdesktopvirtualization.StatusUnavailable:
		return types.SessionHostUnavailable
	case armdesktopvirtualization.StatusUpgrading:
		return types.SessionHostUpgrading
	case armdesktopvirtualization.StatusShutdown:
		return types.SessionHostShutdown
	default:
		return types.SessionHostStatus(string(*props.Status))
	}
}
