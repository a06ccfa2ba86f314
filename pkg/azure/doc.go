/*
Package azure wraps the resource-manager clients the rollout pipeline
depends on: template deployments, the desktop-virtualization control plane
and the compute restart verb.

A Clients value is a scoped handle built once per run from a service
principal credential. Deploy blocks until the deployment engine reports a
terminal state; session host enumeration is always a fresh read; VM
restarts are fire-and-forget.

The rollout package consumes these operations through its own small
interfaces, so everything above this package is testable with fakes.
*/
package azure
