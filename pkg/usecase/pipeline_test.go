package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/infra/repository"
	"github.com/mkurata/docship/pkg/usecase"
)

// stepRecorder keeps the order in which step collaborators were invoked
type stepRecorder struct {
	calls []string
}

type fakeFetcher struct {
	rec *stepRecorder
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, repo model.Repository, commitSHA, dir string) (string, error) {
	f.rec.calls = append(f.rec.calls, "checkout")
	if f.err != nil {
		return "clone log", f.err
	}
	return "clone log", nil
}

type fakeInstaller struct {
	rec *stepRecorder
	err error
}

func (f *fakeInstaller) Install(ctx context.Context, toolchain string) (string, error) {
	f.rec.calls = append(f.rec.calls, "toolchain")
	if f.err != nil {
		return "", f.err
	}
	return "installed " + toolchain, nil
}

type fakeRunner struct {
	rec   *stepRecorder
	err   error
	block bool // block until the run context expires
}

func (f *fakeRunner) Run(ctx context.Context, dir, script string, env map[string]string) (string, error) {
	f.rec.calls = append(f.rec.calls, "build")
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "script output before failure", f.err
	}
	return "script output", nil
}

type fakePublisher struct {
	rec *stepRecorder
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, srcDir string, repo model.Repository, branch, message string) (string, error) {
	f.rec.calls = append(f.rec.calls, "publish")
	if f.err != nil {
		return "", f.err
	}
	return "pushed to " + branch, nil
}

type fakeReporter struct {
	states  []interfaces.StatusState
	ctxErrs []error // ctx.Err() observed at Report time
}

func (f *fakeReporter) Report(ctx context.Context, repo model.Repository, commitSHA string, state interfaces.StatusState, description string) error {
	f.states = append(f.states, state)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return nil
}

type fakeNotifier struct {
	notified []*model.Run
	ctxErrs  []error
}

func (f *fakeNotifier) NotifyFailure(ctx context.Context, run *model.Run) error {
	f.notified = append(f.notified, run)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return nil
}

type pipelineHarness struct {
	rec       *stepRecorder
	fetcher   *fakeFetcher
	installer *fakeInstaller
	runner    *fakeRunner
	publisher *fakePublisher
	reporter  *fakeReporter
	notifier  *fakeNotifier
	store     *repository.Memory
	uc        interfaces.PipelineUseCase
}

func newHarness(t *testing.T, opts ...usecase.PipelineOption) *pipelineHarness {
	t.Helper()
	rec := &stepRecorder{}
	h := &pipelineHarness{
		rec:       rec,
		fetcher:   &fakeFetcher{rec: rec},
		installer: &fakeInstaller{rec: rec},
		runner:    &fakeRunner{rec: rec},
		publisher: &fakePublisher{rec: rec},
		reporter:  &fakeReporter{},
		notifier:  &fakeNotifier{},
		store:     repository.NewMemory(),
	}
	opts = append([]usecase.PipelineOption{
		usecase.WithStatusReporter(h.reporter),
		usecase.WithNotifier(h.notifier),
		usecase.WithWorkspaceRoot(t.TempDir()),
	}, opts...)
	h.uc = usecase.NewPipeline(
		model.DefaultWorkflow(),
		h.fetcher,
		h.installer,
		h.runner,
		h.publisher,
		h.store,
		opts...,
	)
	return h
}

func pushEvent(branch string) *model.EventContext {
	return &model.EventContext{
		DeliveryID: "delivery-1",
		Type:       model.EventTypePush,
		Branch:     branch,
		CommitSHA:  "a1b2c3d4",
		Repo: model.Repository{
			Owner:    "acme",
			Name:     "widgets",
			CloneURL: "https://github.com/acme/widgets.git",
		},
		Sender:     "octocat",
		ReceivedAt: time.Now(),
	}
}

func prEvent(branch string) *model.EventContext {
	ev := pushEvent(branch)
	ev.Type = model.EventTypePullRequest
	return ev
}

func TestPipeline_PushToPublishBranch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.uc.Execute(ctx, pushEvent("dev"))
	gt.NoError(t, err)

	gt.Equal(t, run.State, model.StateDone)
	gt.True(t, run.Published())
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain", "build", "publish"})
	gt.Equal(t, h.reporter.states, []interfaces.StatusState{interfaces.StatusPending, interfaces.StatusSuccess})
	gt.Equal(t, len(h.notifier.notified), 0)

	stored, err := h.store.Get(ctx, run.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.State, model.StateDone)
	gt.Equal(t, len(stored.Steps), 4)
}

func TestPipeline_PullRequestSkipsPublish(t *testing.T) {
	h := newHarness(t)

	run, err := h.uc.Execute(context.Background(), prEvent("feature/x"))
	gt.NoError(t, err)

	gt.Equal(t, run.State, model.StateDone)
	gt.Equal(t, run.Published(), false)
	// Build ran, publish never reached the publisher
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain", "build"})

	// The skip is still visible in the step history
	last := run.Steps[len(run.Steps)-1]
	gt.Equal(t, last.Name, model.StepPublish)
	gt.Equal(t, last.Outcome, model.StepOutcomeSkipped)
}

func TestPipeline_BuildFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.runner.err = errors.New("exit status 1")

	run, err := h.uc.Execute(context.Background(), pushEvent("dev"))
	gt.Error(t, err)

	gt.Equal(t, run.State, model.StateFailed)
	// Publish must not run after a failed build, publish condition or not
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain", "build"})
	gt.Equal(t, h.reporter.states, []interfaces.StatusState{interfaces.StatusPending, interfaces.StatusFailure})
	gt.Equal(t, len(h.notifier.notified), 1)

	step, ok := run.FailedStep()
	gt.True(t, ok)
	gt.Equal(t, step.Name, model.StepBuild)
	// Output the script produced before failing is kept
	gt.Equal(t, step.Log, "script output before failure")
}

func TestPipeline_CheckoutFailureStopsEverything(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("repository not found")

	run, err := h.uc.Execute(context.Background(), pushEvent("dev"))
	gt.Error(t, err)

	gt.Equal(t, run.State, model.StateFailed)
	gt.Equal(t, h.rec.calls, []string{"checkout"})
}

func TestPipeline_ToolchainFailureStopsBuild(t *testing.T) {
	h := newHarness(t)
	h.installer.err = errors.New("toolchain 'stable' not found")

	run, err := h.uc.Execute(context.Background(), pushEvent("dev"))
	gt.Error(t, err)

	gt.Equal(t, run.State, model.StateFailed)
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain"})
}

func TestPipeline_PublishFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("push rejected")

	run, err := h.uc.Execute(context.Background(), pushEvent("dev"))
	gt.Error(t, err)

	gt.Equal(t, run.State, model.StateFailed)
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain", "build", "publish"})
	// No rollback: the build step result stays successful
	gt.Equal(t, run.Steps[2].Outcome, model.StepOutcomeSuccess)
}

func TestPipeline_PushToOtherBranchSkipsPublish(t *testing.T) {
	h := newHarness(t)

	run, err := h.uc.Execute(context.Background(), pushEvent("main"))
	gt.NoError(t, err)

	gt.Equal(t, run.State, model.StateDone)
	gt.Equal(t, run.Published(), false)
	gt.Equal(t, h.rec.calls, []string{"checkout", "toolchain", "build"})
}

func TestPipeline_RunTimeoutStillReportsFailure(t *testing.T) {
	h := newHarness(t, usecase.WithRunTimeout(50*time.Millisecond))
	h.runner.block = true

	run, err := h.uc.Execute(context.Background(), pushEvent("dev"))
	gt.Error(t, err)
	gt.Equal(t, run.State, model.StateFailed)

	// The failure side channels must not inherit the expired run context:
	// the failure status, the notification and the stored record all go out
	gt.Equal(t, h.reporter.states, []interfaces.StatusState{interfaces.StatusPending, interfaces.StatusFailure})
	gt.NoError(t, h.reporter.ctxErrs[1])
	gt.Equal(t, len(h.notifier.notified), 1)
	gt.NoError(t, h.notifier.ctxErrs[0])

	stored, serr := h.store.Get(context.Background(), run.ID)
	gt.NoError(t, serr)
	gt.Equal(t, stored.State, model.StateFailed)
}

func TestPipeline_RunsAreIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.uc.Execute(ctx, pushEvent("dev"))
	gt.NoError(t, err)
	second, err := h.uc.Execute(ctx, pushEvent("dev"))
	gt.NoError(t, err)

	gt.True(t, first.ID != second.ID)

	runs, err := h.store.List(ctx, 0)
	gt.NoError(t, err)
	gt.Equal(t, len(runs), 2)
}
