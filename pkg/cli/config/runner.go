package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Runner holds pipeline execution configuration
type Runner struct {
	WorkspaceRoot string
	RunTimeout    time.Duration
}

// Flags returns CLI flags for pipeline execution
func (c *Runner) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "workspace-root",
			Usage:       "Directory for per-run checkout workspaces (OS temp dir when empty)",
			Destination: &c.WorkspaceRoot,
			Sources:     cli.EnvVars("DOCSHIP_WORKSPACE_ROOT"),
		},
		&cli.DurationFlag{
			Name:        "run-timeout",
			Usage:       "Wall clock limit for a single run (0 disables)",
			Value:       30 * time.Minute,
			Destination: &c.RunTimeout,
			Sources:     cli.EnvVars("DOCSHIP_RUN_TIMEOUT"),
		},
	}
}
