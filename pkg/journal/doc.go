// Package journal persists a local history of pipeline runs in a bbolt
// database for the history command. It is deliberately not a checkpoint:
// no pipeline decision ever reads it.
package journal
