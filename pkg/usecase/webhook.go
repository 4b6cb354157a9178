package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/utils/async"
)

type webhookUseCase struct {
	workflow   *model.Workflow
	pipeline   interfaces.PipelineUseCase
	dispatcher *async.Dispatcher
}

// NewWebhook creates a new instance of WebhookUseCase. Matched events are
// handed to the pipeline asynchronously so the webhook response returns
// before the run finishes.
func NewWebhook(workflow *model.Workflow, pipeline interfaces.PipelineUseCase, dispatcher *async.Dispatcher) interfaces.WebhookUseCase {
	return &webhookUseCase{
		workflow:   workflow,
		pipeline:   pipeline,
		dispatcher: dispatcher,
	}
}

// ProcessEvent evaluates the workflow triggers for an event and starts a
// pipeline run when they match. Unmatched events are logged and dropped.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.EventContext) error {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"delivery_id", event.DeliveryID,
		"type", event.Type,
		"repository", event.Repo.FullName(),
		"branch", event.Branch,
		"commit", event.CommitSHA,
		"sender", event.Sender,
	)

	if !event.IsSupportedEvent() {
		logger.Warn("Unsupported event received", "type", event.Type)
		return nil
	}

	if !uc.workflow.TriggersRun(event.Type, event.Branch) {
		logger.Info("Event does not match workflow triggers",
			"type", event.Type,
			"branch", event.Branch,
			"workflow", uc.workflow.Name,
		)
		return nil
	}

	ev := *event
	uc.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		_, err := uc.pipeline.Execute(ctx, &ev)
		return err
	})

	return nil
}
