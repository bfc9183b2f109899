package coordinator

import (
	"github.com/google/uuid"

	"github.com/arthur-debert/morphd/pkg/trigger"
)

// Status is a job's position in its lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusConverting
	StatusRestoring
	StatusFinalizing
	StatusDone
	StatusFailed
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConverting:
		return "converting"
	case StatusRestoring:
		return "restoring"
	case StatusFinalizing:
		return "finalizing"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one trigger's lifecycle from detection to final replacement.
// A job is owned by exactly one worker; nothing mutates it concurrently.
type Job struct {
	// ID is opaque and unique per job.
	ID string
	// SourcePath is the bang-named path that triggered the job.
	SourcePath string
	// FinalPath is the resolved clean output path; it doubles as the
	// serialization key.
	FinalPath string
	// Trigger is the parsed descriptor.
	Trigger trigger.Descriptor
	// Status is the current lifecycle position.
	Status Status
	// Err is set when Status is StatusFailed.
	Err error
}

// newJob creates a pending job for a confirmed trigger.
func newJob(sourcePath, finalPath string, desc trigger.Descriptor) *Job {
	return &Job{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		FinalPath:  finalPath,
		Trigger:    desc,
		Status:     StatusPending,
	}
}
