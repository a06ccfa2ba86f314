// Package imagewatch detects freshly published image builds in the shared
// image repository. "Latest" is whichever subfolder has the most recent
// modification time; the gate compares its last-write date against the
// current UTC date. A stale, empty or unreachable repository is the
// no-change outcome, never a crash.
package imagewatch
