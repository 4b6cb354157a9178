package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/cli/config"
	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/infra/gitops"
	"github.com/mkurata/docship/pkg/infra/repository"
	"github.com/mkurata/docship/pkg/infra/script"
	"github.com/mkurata/docship/pkg/infra/toolchain"
	"github.com/mkurata/docship/pkg/usecase"
)

// cmdRun executes the pipeline once for a synthetic event, without a
// webhook. Useful for trying a workflow file before pointing the forge at
// the server.
func cmdRun() *cli.Command {
	var (
		githubCfg   config.GitHub
		workflowCfg config.Workflow
		runnerCfg   config.Runner

		eventType string
		branch    string
		repoSlug  string
		cloneURL  string
		commitSHA string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "event",
			Usage:       "Event type to simulate (push, pull_request)",
			Value:       "push",
			Destination: &eventType,
		},
		&cli.StringFlag{
			Name:        "branch",
			Usage:       "Branch the simulated event refers to",
			Required:    true,
			Destination: &branch,
		},
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository in owner/name form",
			Required:    true,
			Destination: &repoSlug,
		},
		&cli.StringFlag{
			Name:        "clone-url",
			Usage:       "Clone URL (derived from --repo when empty)",
			Destination: &cloneURL,
		},
		&cli.StringFlag{
			Name:        "commit",
			Usage:       "Commit SHA to build (remote HEAD when empty)",
			Destination: &commitSHA,
		},
	}
	flags = append(flags, workflowCfg.Flags()...)
	flags = append(flags, runnerCfg.Flags()...)
	// Only the deploy token is meaningful here; webhook flags stay on serve
	flags = append(flags, &cli.StringFlag{
		Name:        "github-token",
		Usage:       "Token for repository clone and hosting-branch push",
		Destination: &githubCfg.Token,
		Sources:     cli.EnvVars("DOCSHIP_GITHUB_TOKEN"),
	})

	return &cli.Command{
		Name:  "run",
		Usage: "Execute the pipeline once for a synthetic event",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			workflow, err := workflowCfg.Load()
			if err != nil {
				return err
			}

			event, err := buildSyntheticEvent(eventType, branch, repoSlug, cloneURL, commitSHA)
			if err != nil {
				return err
			}

			pipelineOpts := []usecase.PipelineOption{
				usecase.WithRunTimeout(runnerCfg.RunTimeout),
			}
			if runnerCfg.WorkspaceRoot != "" {
				pipelineOpts = append(pipelineOpts, usecase.WithWorkspaceRoot(runnerCfg.WorkspaceRoot))
			}

			gitClient := gitops.NewClient(githubCfg.Token)
			pipelineUC := usecase.NewPipeline(
				workflow,
				gitClient,
				toolchain.NewRustupInstaller(),
				script.NewRunner(),
				gitClient,
				repository.NewMemory(),
				pipelineOpts...,
			)

			run, runErr := pipelineUC.Execute(ctx, event)
			printRunSummary(run)
			if runErr != nil {
				return goerr.Wrap(runErr, "run failed", goerr.V("run_id", run.ID))
			}
			return nil
		},
	}
}

func buildSyntheticEvent(eventType, branch, repoSlug, cloneURL, commitSHA string) (*model.EventContext, error) {
	var evType model.EventType
	switch eventType {
	case "push":
		evType = model.EventTypePush
	case "pull_request":
		evType = model.EventTypePullRequest
	default:
		return nil, goerr.New("unsupported event type", goerr.V("event", eventType))
	}

	owner, name, ok := strings.Cut(repoSlug, "/")
	if !ok || owner == "" || name == "" {
		return nil, goerr.New("repo must be in owner/name form", goerr.V("repo", repoSlug))
	}
	if cloneURL == "" {
		cloneURL = fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
	}

	return &model.EventContext{
		DeliveryID: "local",
		Type:       evType,
		Branch:     branch,
		CommitSHA:  commitSHA,
		Repo:       model.Repository{Owner: owner, Name: name, CloneURL: cloneURL},
		Sender:     "local",
		ReceivedAt: time.Now(),
	}, nil
}

func printRunSummary(run *model.Run) {
	bold := color.New(color.Bold)
	bold.Printf("run %s (%s)\n", run.ID, run.Event.Repo.FullName())

	for _, step := range run.Steps {
		switch step.Outcome {
		case model.StepOutcomeSuccess:
			color.Green("  ✔ %-10s %s", step.Name, step.Duration.Round(time.Millisecond))
		case model.StepOutcomeFailure:
			color.Red("  ✘ %-10s %s", step.Name, step.Duration.Round(time.Millisecond))
		case model.StepOutcomeSkipped:
			color.Yellow("  - %-10s skipped", step.Name)
		}
	}

	switch run.State {
	case model.StateDone:
		color.Green("state: done (published=%v)", run.Published())
	case model.StateFailed:
		color.Red("state: failed: %s", run.Error)
	default:
		bold.Printf("state: %s\n", run.State)
	}
}
