package types

import (
	"time"
)

// ImageVersion describes the newest published image build found in the
// shared image repository. Immutable once read; it lives for the duration
// of a single pipeline run.
type ImageVersion struct {
	FolderName string
	LastWrite  time.Time
}

// PublishedToday reports whether the image's last-write date (not time)
// equals the given instant's UTC date.
func (v ImageVersion) PublishedToday(now time.Time) bool {
	y1, m1, d1 := v.LastWrite.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DeploymentSpec is the complete parameter set for one host-pool deployment,
// derived deterministically from an ImageVersion plus naming conventions.
// HostPoolName and HostPoolFriendlyName are always equal.
type DeploymentSpec struct {
	HostPoolName         string
	HostPoolFriendlyName string
	TokenExpiration      time.Time
	VMImageResourceID    string
	VMNamePrefix         string
	WorkspaceName        string
	DesktopFriendlyName  string
}

// SessionHost is one virtual machine registered to a host pool, as reported
// by the desktop control plane. Name is the pool-qualified form; VMName is
// the bare machine name the compute restart API expects.
type SessionHost struct {
	Name   string
	VMName string
	Status SessionHostStatus
}

// SessionHostStatus represents the control-plane status of a session host
type SessionHostStatus string

const (
	SessionHostAvailable   SessionHostStatus = "Available"
	SessionHostUnavailable SessionHostStatus = "Unavailable"
	SessionHostUpgrading   SessionHostStatus = "Upgrading"
	SessionHostShutdown    SessionHostStatus = "Shutdown"
	SessionHostUnknown     SessionHostStatus = "Unknown"
)

// DeploymentResult carries the terminal state of a resource-manager deployment
type DeploymentResult struct {
	DeploymentName    string
	ProvisioningState string
	CorrelationID     string
	Duration          time.Duration
}

// HostRestartFailure records one session host that failed to restart
// during a wave.
type HostRestartFailure struct {
	VMName string
	Wave   int
	Err    string
}

// WaveReport summarizes one restart wave
type WaveReport struct {
	Wave      int
	Hosts     int
	Restarted int
	Failures  []HostRestartFailure
	StartedAt time.Time
	Duration  time.Duration
}

// RunOutcome is the terminal state of one pipeline run
type RunOutcome string

const (
	RunOutcomeNoChange  RunOutcome = "no-change"
	RunOutcomeSucceeded RunOutcome = "succeeded"
	RunOutcomeFailed    RunOutcome = "failed"
)

// RunRecord is the journal entry written after a pipeline run completes.
// It is informational only: the pipeline never reads past records, every
// run starts from the top.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Outcome      RunOutcome
	ImageFolder  string
	HostPoolName string
	Error        string
	Waves        []WaveReport
}
