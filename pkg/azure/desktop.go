package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/desktopvirtualization/armdesktopvirtualization/v2"

	"github.com/schuecal/avdroll/pkg/log"
)

// sessionDesktopName is the fixed name under which the deployment engine
// publishes the default desktop inside a desktop application group.
const sessionDesktopName = "SessionDesktop"

// renameAttempts bounds the rename retries; transient control-plane errors
// on freshly created application groups are common and the operation is
// non-destructive, so it is retried before becoming fatal.
const (
	renameAttempts = 3
	renameBackoff  = 10 * time.Second
)

// RenameSessionDesktop sets the friendly name of the default published
// desktop in the given application group. Idempotent: repeating the call
// with the same name is safe.
func (c *Clients) RenameSessionDesktop(ctx context.Context, appGroup, friendlyName string) error {
	logger := log.WithComponent("azure.desktop")

	var lastErr error
	for attempt := 1; attempt <= renameAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := c.desktops.Update(ctx, c.cfg.ResourceGroup, appGroup, sessionDesktopName,
			&armdesktopvirtualization.DesktopsClientUpdateOptions{
				Desktop: &armdesktopvirtualization.DesktopPatch{
					Properties: &armdesktopvirtualization.DesktopPatchProperties{
						FriendlyName: to.Ptr(friendlyName),
					},
				},
			})
		if err == nil {
			logger.Info().
				Str("application_group", appGroup).
				Str("friendly_name", friendlyName).
				Msg("renamed session desktop")
			return nil
		}

		lastErr = err
		logger.Warn().
			Err(err).
			Str("application_group", appGroup).
			Int("attempt", attempt).
			Msg("session desktop rename failed")

		if attempt < renameAttempts {
			select {
			case <-time.After(renameBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed to rename session desktop in %s after %d attempts: %w",
		appGroup, renameAttempts, lastErr)
}
