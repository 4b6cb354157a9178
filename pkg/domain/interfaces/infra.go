package interfaces

import (
	"context"
	"time"

	"github.com/mkurata/docship/pkg/domain/model"
)

// SourceFetcher acquires a clean snapshot of the repository at a commit
type SourceFetcher interface {
	// Fetch clones repo into dir and checks out commitSHA. The returned
	// string is the captured operation log.
	Fetch(ctx context.Context, repo model.Repository, commitSHA, dir string) (string, error)
}

// ToolchainInstaller installs the fixed toolchain version the build needs
type ToolchainInstaller interface {
	Install(ctx context.Context, toolchain string) (string, error)
}

// ScriptRunner executes the opaque external build script
type ScriptRunner interface {
	// Run executes script (a repo-relative path) inside dir with env merged
	// over the process environment. Non-zero exit is returned as an error;
	// the combined output is returned either way.
	Run(ctx context.Context, dir, script string, env map[string]string) (string, error)
}

// Publisher mirrors a directory's contents to the hosting branch
type Publisher interface {
	Publish(ctx context.Context, srcDir string, repo model.Repository, branch, message string) (string, error)
}

// RunRepository persists run records. Get wraps model.ErrRunNotFound for
// unknown ids.
type RunRepository interface {
	Save(ctx context.Context, run *model.Run) error
	Get(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, limit int) ([]*model.Run, error)
}

// StatusReporter posts commit build status back to the forge. Implementations
// must treat reporting as best-effort: a run's outcome never depends on it.
type StatusReporter interface {
	Report(ctx context.Context, repo model.Repository, commitSHA string, state StatusState, description string) error
}

// StatusState is the forge-side commit status value
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
)

// Notifier reports terminal run failures to a human channel
type Notifier interface {
	NotifyFailure(ctx context.Context, run *model.Run) error
}

// ArtifactStore archives the per-run step logs after the run reaches a
// terminal state
type ArtifactStore interface {
	PutRunLog(ctx context.Context, run *model.Run) error
}

// MetricsSink receives pipeline observations
type MetricsSink interface {
	RunStarted()
	RunFinished(state model.RunState)
	StepObserved(step model.StepName, outcome model.StepOutcome, d time.Duration)
}
