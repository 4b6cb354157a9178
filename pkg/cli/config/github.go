package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	ghinfra "github.com/mkurata/docship/pkg/infra/github"
)

// GitHub holds forge configuration: the webhook secret, the deploy token
// used for git over HTTPS, and optional App credentials for commit status
// reporting
type GitHub struct {
	WebhookSecret  string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("DOCSHIP_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "Token for repository clone and hosting-branch push",
			Destination: &c.Token,
			Sources:     cli.EnvVars("DOCSHIP_GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID for commit status reporting",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("DOCSHIP_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("DOCSHIP_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "Path to the GitHub App private key PEM",
			Destination: &c.PrivateKeyPath,
			Sources:     cli.EnvVars("DOCSHIP_GITHUB_PRIVATE_KEY"),
		},
	}
}

// StatusReporter builds a commit status reporter from the App credentials.
// Returns nil when App auth is not configured; status reporting is optional.
func (c *GitHub) StatusReporter() (interfaces.StatusReporter, error) {
	if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPath == "" {
		return nil, nil
	}
	key, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read GitHub App private key",
			goerr.V("path", c.PrivateKeyPath))
	}
	return ghinfra.NewClient(c.AppID, c.InstallationID, key)
}
