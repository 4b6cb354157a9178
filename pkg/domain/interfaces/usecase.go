package interfaces

import (
	"context"

	"github.com/mkurata/docship/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent evaluates the workflow triggers for an event and, when
	// they match, starts a pipeline run
	ProcessEvent(ctx context.Context, event *model.EventContext) error
}

// PipelineUseCase runs the build-and-publish pipeline for one event
type PipelineUseCase interface {
	// Execute runs all steps sequentially and returns the terminal run.
	// The returned run is non-nil even when err is non-nil.
	Execute(ctx context.Context, event *model.EventContext) (*model.Run, error)
}
