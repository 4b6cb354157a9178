package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
)

type pipelineUseCase struct {
	workflow  *model.Workflow
	fetcher   interfaces.SourceFetcher
	installer interfaces.ToolchainInstaller
	runner    interfaces.ScriptRunner
	publisher interfaces.Publisher
	store     interfaces.RunRepository

	reporter  interfaces.StatusReporter
	notifier  interfaces.Notifier
	artifacts interfaces.ArtifactStore
	metrics   interfaces.MetricsSink

	workspaceRoot string
	runTimeout    time.Duration
}

// PipelineOption configures optional collaborators of the pipeline
type PipelineOption func(*pipelineUseCase)

// WithStatusReporter enables commit status reporting
func WithStatusReporter(r interfaces.StatusReporter) PipelineOption {
	return func(uc *pipelineUseCase) { uc.reporter = r }
}

// WithNotifier enables failure notifications
func WithNotifier(n interfaces.Notifier) PipelineOption {
	return func(uc *pipelineUseCase) { uc.notifier = n }
}

// WithArtifactStore enables run log archival
func WithArtifactStore(s interfaces.ArtifactStore) PipelineOption {
	return func(uc *pipelineUseCase) { uc.artifacts = s }
}

// WithMetrics enables pipeline metrics
func WithMetrics(m interfaces.MetricsSink) PipelineOption {
	return func(uc *pipelineUseCase) { uc.metrics = m }
}

// WithWorkspaceRoot sets the directory under which per-run workspaces are
// created. Defaults to the OS temp dir.
func WithWorkspaceRoot(dir string) PipelineOption {
	return func(uc *pipelineUseCase) { uc.workspaceRoot = dir }
}

// WithRunTimeout bounds a single run's wall clock time. Zero disables the
// bound.
func WithRunTimeout(d time.Duration) PipelineOption {
	return func(uc *pipelineUseCase) { uc.runTimeout = d }
}

// NewPipeline creates the pipeline use case. The four step collaborators and
// the run store are required; everything else is optional.
func NewPipeline(
	workflow *model.Workflow,
	fetcher interfaces.SourceFetcher,
	installer interfaces.ToolchainInstaller,
	runner interfaces.ScriptRunner,
	publisher interfaces.Publisher,
	store interfaces.RunRepository,
	opts ...PipelineOption,
) interfaces.PipelineUseCase {
	uc := &pipelineUseCase{
		workflow:      workflow,
		fetcher:       fetcher,
		installer:     installer,
		runner:        runner,
		publisher:     publisher,
		store:         store,
		workspaceRoot: os.TempDir(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute runs the whole pipeline for one event: checkout, toolchain
// install, build script, then publish or skip. Steps are strictly
// sequential; the first failure is fatal to the run and nothing after it
// executes. There are no retries and no rollback: a failed run is re-run by
// a human, not repaired.
func (uc *pipelineUseCase) Execute(ctx context.Context, event *model.EventContext) (*model.Run, error) {
	logger := ctxlog.From(ctx)

	if uc.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.runTimeout)
		defer cancel()
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Workflow:  uc.workflow.Name,
		Event:     *event,
		State:     model.StatePending,
		StartedAt: time.Now(),
	}

	logger.Info("Starting pipeline run",
		"run_id", run.ID,
		"repo", event.Repo.FullName(),
		"event", event.Type,
		"branch", event.Branch,
		"commit", event.CommitSHA,
	)

	if uc.metrics != nil {
		uc.metrics.RunStarted()
	}
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RunFinished(run.State)
		}
	}()

	uc.saveRun(ctx, run)
	uc.reportStatus(ctx, run, interfaces.StatusPending, "docs build started")

	workspace := filepath.Join(uc.workspaceRoot, "docship-run-"+run.ID)
	if err := os.MkdirAll(workspace, 0o700); err != nil {
		return uc.failRun(ctx, run, goerr.Wrap(err, "failed to create run workspace"))
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("Failed to clean up run workspace", "workspace", workspace, "error", err)
		}
	}()
	checkoutDir := filepath.Join(workspace, "src")

	// Checkout
	err := uc.runStep(ctx, run, model.StepCheckout, model.StateCheckedOut, func(ctx context.Context) (string, error) {
		return uc.fetcher.Fetch(ctx, event.Repo, event.CommitSHA, checkoutDir)
	})
	if err != nil {
		return uc.failRun(ctx, run, err)
	}

	// Toolchain
	err = uc.runStep(ctx, run, model.StepToolchain, model.StateToolchainReady, func(ctx context.Context) (string, error) {
		return uc.installer.Install(ctx, uc.workflow.Toolchain)
	})
	if err != nil {
		return uc.failRun(ctx, run, err)
	}

	// Build script
	err = uc.runStep(ctx, run, model.StepBuild, model.StateBuilt, func(ctx context.Context) (string, error) {
		return uc.runner.Run(ctx, checkoutDir, uc.workflow.Build.Script, uc.workflow.Env)
	})
	if err != nil {
		return uc.failRun(ctx, run, err)
	}

	// Publish gate
	if uc.workflow.ShouldPublish(event.Type, event.Branch) {
		outputDir := filepath.Join(checkoutDir, filepath.FromSlash(uc.workflow.Build.OutputDir))
		message := fmt.Sprintf("docs: publish %s@%s", event.Repo.FullName(), event.CommitSHA)

		err = uc.runStep(ctx, run, model.StepPublish, model.StatePublished, func(ctx context.Context) (string, error) {
			return uc.publisher.Publish(ctx, outputDir, event.Repo, uc.workflow.Publish.Branch, message)
		})
		if err != nil {
			return uc.failRun(ctx, run, err)
		}
	} else {
		run.RecordStep(model.StepResult{
			Name:      model.StepPublish,
			Outcome:   model.StepOutcomeSkipped,
			StartedAt: time.Now(),
		})
		if err := run.Advance(model.StateSkipped); err != nil {
			return uc.failRun(ctx, run, err)
		}
		logger.Info("Publish skipped", "run_id", run.ID, "event", event.Type, "branch", event.Branch)
	}

	if err := run.Advance(model.StateDone); err != nil {
		return uc.failRun(ctx, run, err)
	}
	uc.saveRun(ctx, run)
	uc.reportStatus(ctx, run, interfaces.StatusSuccess, successDescription(run))
	uc.archiveLog(ctx, run)

	logger.Info("Pipeline run finished",
		"run_id", run.ID,
		"state", run.State,
		"published", run.Published(),
		"duration", run.FinishedAt.Sub(run.StartedAt).String(),
	)
	return run, nil
}

// runStep executes one step, records its result and advances the state
// machine on success. The step error is returned unwrapped for failRun.
func (uc *pipelineUseCase) runStep(ctx context.Context, run *model.Run, name model.StepName, next model.RunState, fn func(ctx context.Context) (string, error)) error {
	logger := ctxlog.From(ctx)
	start := time.Now()

	logger.Debug("Running pipeline step", "run_id", run.ID, "step", name)
	log, err := fn(ctx)

	result := model.StepResult{
		Name:      name,
		Log:       log,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Outcome = model.StepOutcomeFailure
	} else {
		result.Outcome = model.StepOutcomeSuccess
	}
	run.RecordStep(result)

	if uc.metrics != nil {
		uc.metrics.StepObserved(name, result.Outcome, result.Duration)
	}

	if err != nil {
		return goerr.Wrap(err, "pipeline step failed",
			goerr.V("run_id", run.ID),
			goerr.V("step", name),
		)
	}
	if err := run.Advance(next); err != nil {
		return err
	}
	uc.saveRun(ctx, run)
	return nil
}

// sideChannelTimeout bounds the failure side channels once the run context
// is no longer usable.
const sideChannelTimeout = 30 * time.Second

// failRun moves the run to Failed and fans the failure out to the side
// channels. The side channels never change the outcome.
func (uc *pipelineUseCase) failRun(ctx context.Context, run *model.Run, err error) (*model.Run, error) {
	logger := ctxlog.From(ctx)

	// The run context may already be done when the failure is the run
	// timeout itself. The persisted record, commit status, notification and
	// log archive still have to go out, so detach from cancellation and
	// bound the fan-out separately.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideChannelTimeout)
	defer cancel()

	run.Fail(err)
	uc.saveRun(ctx, run)

	logger.Error("Pipeline run failed",
		"run_id", run.ID,
		"repo", run.Event.Repo.FullName(),
		"error", err,
	)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", run.ID)
		scope.SetTag("repository", run.Event.Repo.FullName())
		scope.SetTag("event_type", string(run.Event.Type))
		sentry.CaptureException(err)
	})

	uc.reportStatus(ctx, run, interfaces.StatusFailure, failureDescription(run))
	if uc.notifier != nil {
		if nerr := uc.notifier.NotifyFailure(ctx, run); nerr != nil {
			logger.Warn("Failed to send failure notification", "run_id", run.ID, "error", nerr)
		}
	}
	uc.archiveLog(ctx, run)

	return run, err
}

func (uc *pipelineUseCase) saveRun(ctx context.Context, run *model.Run) {
	if err := uc.store.Save(ctx, run); err != nil {
		ctxlog.From(ctx).Warn("Failed to persist run", "run_id", run.ID, "error", err)
	}
}

func (uc *pipelineUseCase) reportStatus(ctx context.Context, run *model.Run, state interfaces.StatusState, description string) {
	if uc.reporter == nil || run.Event.CommitSHA == "" {
		return
	}
	if err := uc.reporter.Report(ctx, run.Event.Repo, run.Event.CommitSHA, state, description); err != nil {
		ctxlog.From(ctx).Warn("Failed to report commit status",
			"run_id", run.ID,
			"state", state,
			"error", err,
		)
	}
}

func (uc *pipelineUseCase) archiveLog(ctx context.Context, run *model.Run) {
	if uc.artifacts == nil {
		return
	}
	if err := uc.artifacts.PutRunLog(ctx, run); err != nil {
		ctxlog.From(ctx).Warn("Failed to archive run log", "run_id", run.ID, "error", err)
	}
}

func successDescription(run *model.Run) string {
	if run.Published() {
		return "docs built and published"
	}
	return "docs built (publish skipped)"
}

func failureDescription(run *model.Run) string {
	if step, ok := run.FailedStep(); ok {
		return fmt.Sprintf("docs pipeline failed at %s", step.Name)
	}
	return "docs pipeline failed"
}
