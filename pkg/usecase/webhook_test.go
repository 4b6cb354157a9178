package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/usecase"
	"github.com/mkurata/docship/pkg/utils/async"
)

// capturingPipeline records events the webhook use case dispatched to it
type capturingPipeline struct {
	mu     sync.Mutex
	events []*model.EventContext
}

func (p *capturingPipeline) Execute(ctx context.Context, event *model.EventContext) (*model.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return &model.Run{ID: "run-1", Event: *event, State: model.StateDone}, nil
}

func (p *capturingPipeline) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestWebhook_ProcessEvent(t *testing.T) {
	tests := []struct {
		name         string
		event        *model.EventContext
		wantDispatch bool
	}{
		{
			name:         "push to dev starts a run",
			event:        &model.EventContext{Type: model.EventTypePush, Branch: "dev"},
			wantDispatch: true,
		},
		{
			name:         "push to main is dropped",
			event:        &model.EventContext{Type: model.EventTypePush, Branch: "main"},
			wantDispatch: false,
		},
		{
			name:         "pull request from any branch starts a run",
			event:        &model.EventContext{Type: model.EventTypePullRequest, Branch: "feature/x"},
			wantDispatch: true,
		},
		{
			name:         "unknown event is dropped",
			event:        &model.EventContext{Type: model.EventTypeUnknown, Branch: "dev"},
			wantDispatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &capturingPipeline{}
			dispatcher := async.NewDispatcher()
			uc := usecase.NewWebhook(model.DefaultWorkflow(), pipeline, dispatcher)

			gt.NoError(t, uc.ProcessEvent(context.Background(), tt.event))

			waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			gt.NoError(t, dispatcher.Wait(waitCtx))

			if tt.wantDispatch {
				gt.Equal(t, pipeline.count(), 1)
			} else {
				gt.Equal(t, pipeline.count(), 0)
			}
		})
	}
}

func TestWebhook_EventCopiedForAsyncRun(t *testing.T) {
	pipeline := &capturingPipeline{}
	dispatcher := async.NewDispatcher()
	uc := usecase.NewWebhook(model.DefaultWorkflow(), pipeline, dispatcher)

	event := &model.EventContext{Type: model.EventTypePush, Branch: "dev", CommitSHA: "abc123"}
	gt.NoError(t, uc.ProcessEvent(context.Background(), event))

	// Mutating the caller's event after dispatch must not affect the run
	event.CommitSHA = "mutated"

	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gt.NoError(t, dispatcher.Wait(waitCtx))

	gt.Equal(t, pipeline.count(), 1)
	gt.Equal(t, pipeline.events[0].CommitSHA, "abc123")
}
