package github

import (
	"context"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/interfaces"
	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/domain/types"
)

type client struct {
	githubClient *github.Client
}

// NewClient creates a GitHub client with App authentication. It reports the
// docs pipeline result as a commit status so the triggering commit shows the
// outcome next to the rest of its checks.
func NewClient(appID, installationID int64, privateKey []byte) (interfaces.StatusReporter, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}

	return &client{
		githubClient: github.NewClient(&http.Client{Transport: itr}),
	}, nil
}

// Report posts a commit status for the pipeline
func (c *client) Report(ctx context.Context, repo model.Repository, commitSHA string, state interfaces.StatusState, description string) error {
	if commitSHA == "" {
		return goerr.New("commit SHA required for status report", goerr.V("repo", repo.FullName()))
	}

	status := &github.RepoStatus{
		State:       github.Ptr(string(state)),
		Context:     github.Ptr(types.StatusContext),
		Description: github.Ptr(description),
	}

	if _, _, err := c.githubClient.Repositories.CreateStatus(ctx, repo.Owner, repo.Name, commitSHA, status); err != nil {
		return goerr.Wrap(err, "failed to create commit status",
			goerr.V("repo", repo.FullName()),
			goerr.V("commit", commitSHA),
			goerr.V("state", state),
		)
	}
	return nil
}
