package script

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Runner executes the external build script as a subprocess. The script is
// an opaque collaborator: its only contract is the exit code and the output
// directory it is expected to fill.
type Runner struct{}

// NewRunner creates a script runner
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes script (repo-relative) inside dir with env merged over the
// process environment. The combined stdout/stderr is returned even on
// failure so the run log keeps whatever the script managed to print.
func (r *Runner) Run(ctx context.Context, dir, script string, env map[string]string) (string, error) {
	scriptPath := filepath.Join(dir, filepath.FromSlash(script))

	rel, err := filepath.Rel(dir, scriptPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", goerr.New("build script path escapes the checkout", goerr.V("script", script))
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return "", goerr.Wrap(err, "build script not found in checkout", goerr.V("script", script))
	}

	cmd := exec.CommandContext(ctx, scriptPath)
	cmd.Dir = dir
	cmd.Env = mergeEnv(os.Environ(), env)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), goerr.Wrap(err, "build script failed", goerr.V("script", script))
	}
	return string(output), nil
}

// mergeEnv overlays the workflow env on top of the inherited environment.
// Workflow values win on key collision.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, shadowed := overlay[key]; shadowed {
				continue
			}
		}
		merged = append(merged, kv)
	}
	for k, v := range overlay {
		merged = append(merged, fmt.Sprintf("%s=%s", k, v))
	}
	return merged
}
