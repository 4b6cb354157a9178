package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/mkurata/docship/pkg/domain/model"
)

// SlackNotifier posts run failures to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
}

// NewSlackNotifier creates a notifier for the given incoming webhook URL
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// NotifyFailure sends a failure summary: repository, branch, failed step and
// the error the run recorded
func (n *SlackNotifier) NotifyFailure(ctx context.Context, run *model.Run) error {
	failedStep := "unknown"
	if step, ok := run.FailedStep(); ok {
		failedStep = string(step.Name)
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(
			":rotating_light: docs pipeline failed\n*Repository:* %s\n*Branch:* %s\n*Event:* %s\n*Failed step:* %s\n*Run:* %s\n*Error:* %s",
			run.Event.Repo.FullName(),
			run.Event.Branch,
			run.Event.Type,
			failedStep,
			run.ID,
			run.Error,
		),
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack notification", goerr.V("run_id", run.ID))
	}
	return nil
}
