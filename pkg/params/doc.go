/*
Package params materializes the deployment parameter set for a host-pool
rollout.

Build derives pool, prefix, workspace and desktop names from the detected
image version plus the environment's naming settings, and stamps a fresh
registration-token expiration of now + 20 days. Render merges that spec
into the ARM parameter document, overwriting exactly the six rollout
parameters and passing everything else through verbatim.

The spec is handed to the deployment executor in memory. The optional
staging write in RenderFile exists only so operators can inspect what a
run submitted.
*/
package params
