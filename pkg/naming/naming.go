package naming

import (
	"fmt"
	"strings"
)

// buildSegmentIndex is the dot-separated segment of the image folder name
// used for the VM name prefix and the desktop friendly name. The folder
// naming contract guarantees at least minSegments segments; anything
// shorter is rejected with a MalformedNameError instead of an index panic.
const (
	buildSegmentIndex = 3
	minSegments       = buildSegmentIndex + 1
)

// MalformedNameError reports an image folder name that violates the
// dot-separated naming convention.
type MalformedNameError struct {
	Name     string
	Segments int
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed image folder name %q: got %d dot-separated segments, need at least %d",
		e.Name, e.Segments, minSegments)
}

// ParseBuildFolder validates an image folder name against the naming
// convention and returns the build segment used in derived names.
func ParseBuildFolder(name string) (string, error) {
	segments := strings.Split(name, ".")
	if len(segments) < minSegments {
		return "", &MalformedNameError{Name: name, Segments: len(segments)}
	}
	return segments[buildSegmentIndex], nil
}

// HostPoolName derives the host pool name from the environment tag and the
// full image folder name. The friendly name is always identical.
func HostPoolName(env, folderName string) string {
	return fmt.Sprintf("%s-app-avd-%s", env, folderName)
}

// VMNamePrefix derives the session host name prefix from the environment
// tag and the build segment.
func VMNamePrefix(env, segment string) string {
	return fmt.Sprintf("%s-sn-%s", env, segment)
}

// WorkspaceName derives the workspace name for an environment.
func WorkspaceName(env string) string {
	return fmt.Sprintf("%s-ws-avd", env)
}

// DesktopFriendlyName derives the published desktop display name shown to
// end users, e.g. "Schuecal_17".
func DesktopFriendlyName(base, segment string) string {
	return fmt.Sprintf("%s_%s", base, segment)
}

// BareHostName reduces a pool-qualified session host name to the bare VM
// name the compute restart API expects: the pool qualifier before '/' and
// any dot-suffixed remainder are stripped.
//
//	"pool/vm01.extra.suffix" -> "vm01"
func BareHostName(qualified string) string {
	name := qualified
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}
