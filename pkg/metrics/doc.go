// Package metrics registers the Prometheus instruments for the rollout
// pipeline: run outcomes, stage and deployment durations, and per-wave
// restart counters. Handler exposes the standard /metrics endpoint for
// scraping during long-running invocations.
package metrics
