package config

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/domain/types"
)

// Observe holds the optional outbound observability and notification
// configuration: Sentry, Slack and run log archival.
type Observe struct {
	SentryDSN       string
	SentryEnv       string
	SlackWebhookURL string
	ArtifactBucket  string
}

// Flags returns CLI flags for observability configuration
func (c *Observe) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for failure capture (disabled when empty)",
			Destination: &c.SentryDSN,
			Sources:     cli.EnvVars("DOCSHIP_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment tag",
			Value:       "production",
			Destination: &c.SentryEnv,
			Sources:     cli.EnvVars("DOCSHIP_SENTRY_ENV"),
		},
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook for failure notifications (disabled when empty)",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("DOCSHIP_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "artifact-bucket",
			Usage:       "Cloud Storage bucket for run log archival (disabled when empty)",
			Destination: &c.ArtifactBucket,
			Sources:     cli.EnvVars("DOCSHIP_ARTIFACT_BUCKET"),
		},
	}
}

// InitSentry initializes the global Sentry client when a DSN is configured.
// The returned flush function is safe to call either way.
func (c *Observe) InitSentry() (func(), error) {
	if c.SentryDSN == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.SentryDSN,
		Environment: c.SentryEnv,
		Release:     types.ServiceName + "@" + types.Version,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize Sentry")
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}
