// Package types defines the shared data model for the rollout pipeline:
// the detected image version, the materialized deployment spec, session
// host records, and the per-run report structures. All values are
// pipeline-local; nothing here is shared mutable state across runs.
package types
