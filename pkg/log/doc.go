/*
Package log provides structured logging for avdroll built on zerolog.

A single global logger is initialized once at process start via Init and
consumed through small helpers. Components derive child loggers carrying
stable context fields:

	logger := log.WithComponent("rollout")
	logger.Info().Str("host_pool", pool).Msg("restart wave complete")

Credentials and registration tokens must never be logged; callers log
resource names and identifiers only.
*/
package log
