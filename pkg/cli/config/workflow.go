package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/domain/model"
)

// Workflow holds the workflow definition source
type Workflow struct {
	Path string
}

// Flags returns CLI flags for workflow configuration
func (c *Workflow) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "workflow",
			Aliases:     []string{"w"},
			Usage:       "Path to the workflow definition (docship.yml); built-in defaults when omitted",
			Destination: &c.Path,
			Sources:     cli.EnvVars("DOCSHIP_WORKFLOW"),
		},
	}
}

// Load reads and validates the workflow definition, falling back to the
// built-in one when no path was given
func (c *Workflow) Load() (*model.Workflow, error) {
	if c.Path == "" {
		return model.DefaultWorkflow(), nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workflow file", goerr.V("path", c.Path))
	}
	wf, err := model.ParseWorkflow(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid workflow file", goerr.V("path", c.Path))
	}
	return wf, nil
}
