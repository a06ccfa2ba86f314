// Package config loads avdroll settings from a YAML file and
// AVDROLL_-prefixed environment variables via viper. Identity values
// (tenant, subscription, service principal) are expected from the
// environment and are treated as opaque: validated for presence where
// they are consumed, never logged, never persisted.
package config
