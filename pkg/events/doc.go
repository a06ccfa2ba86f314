// Package events provides a buffered pub/sub broker for rollout progress
// events. The pipeline publishes stage and per-host events; the CLI
// subscribes to log them and the journal subscribes to persist run
// records. Slow subscribers are skipped rather than blocking the pipeline.
package events
