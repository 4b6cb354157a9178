package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/mkurata/docship/pkg/cli/config"
)

func cmdValidate() *cli.Command {
	var workflowCfg config.Workflow

	return &cli.Command{
		Name:  "validate",
		Usage: "Parse and validate a workflow definition",
		Flags: workflowCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			workflow, err := workflowCfg.Load()
			if err != nil {
				return err
			}

			color.Green("workflow %q is valid", workflow.Name)
			fmt.Printf("  toolchain:  %s\n", workflow.Toolchain)
			fmt.Printf("  script:     %s\n", workflow.Build.Script)
			fmt.Printf("  output dir: %s\n", workflow.Build.OutputDir)
			fmt.Printf("  publish to: %s\n", workflow.Publish.Branch)
			if workflow.On.Push != nil {
				if len(workflow.On.Push.Branches) == 0 {
					fmt.Println("  on push:    any branch")
				} else {
					fmt.Printf("  on push:    %v\n", workflow.On.Push.Branches)
				}
			}
			if workflow.On.PullRequest != nil {
				fmt.Println("  on pull_request: all events (build only, no publish)")
			}
			if workflow.On.Push == nil {
				fmt.Println("  note: no push trigger, nothing will ever publish")
			}
			return nil
		},
	}
}
