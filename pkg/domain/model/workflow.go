package model

import (
	"path"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// PushTrigger matches push events against a branch list.
// An empty branch list matches any branch.
type PushTrigger struct {
	Branches []string `yaml:"branches"`
}

// Matches reports whether a push to branch qualifies
func (t *PushTrigger) Matches(branch string) bool {
	if t == nil {
		return false
	}
	if len(t.Branches) == 0 {
		return true
	}
	return slices.Contains(t.Branches, branch)
}

// PullRequestTrigger matches pull_request events. Its presence in the
// workflow file means all pull_request events qualify, any target.
type PullRequestTrigger struct{}

// Triggers declares which events start a run
type Triggers struct {
	Push        *PushTrigger        `yaml:"push"`
	PullRequest *PullRequestTrigger `yaml:"pull_request"`
}

// UnmarshalYAML treats a present-but-null trigger key as enabled, so
// `pull_request:` and `pull_request: {}` both count. A bare key with no
// value is how these files are usually written.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return goerr.New("workflow triggers must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "push":
			t.Push = &PushTrigger{}
			if value.Tag != "!!null" {
				if err := value.Decode(t.Push); err != nil {
					return goerr.Wrap(err, "invalid push trigger")
				}
			}
		case "pull_request":
			t.PullRequest = &PullRequestTrigger{}
			if value.Tag != "!!null" {
				if err := value.Decode(t.PullRequest); err != nil {
					return goerr.Wrap(err, "invalid pull_request trigger")
				}
			}
		default:
			return goerr.New("unknown workflow trigger", goerr.V("trigger", key))
		}
	}
	return nil
}

// BuildConfig locates the external build script and its output
type BuildConfig struct {
	Script    string `yaml:"script"`
	OutputDir string `yaml:"output_dir"`
}

// PublishConfig names the hosting branch the output directory is mirrored to
type PublishConfig struct {
	Branch string `yaml:"branch"`
}

// Workflow is the parsed docship.yml definition. Defaults reproduce the
// documentation pipeline this service was built for: build Rust crate docs
// on pushes to dev and on every pull request, publish only for dev pushes.
type Workflow struct {
	Name      string            `yaml:"name"`
	On        Triggers          `yaml:"on"`
	Env       map[string]string `yaml:"env"`
	Toolchain string            `yaml:"toolchain"`
	Build     BuildConfig       `yaml:"build"`
	Publish   PublishConfig     `yaml:"publish"`
}

// DefaultWorkflow returns the built-in definition used when no workflow
// file is supplied
func DefaultWorkflow() *Workflow {
	return &Workflow{
		Name: "docs",
		On: Triggers{
			Push:        &PushTrigger{Branches: []string{"dev"}},
			PullRequest: &PullRequestTrigger{},
		},
		Env: map[string]string{
			"CARGO_TERM_COLOR":                    "always",
			"CARGO_REGISTRIES_CRATES_IO_PROTOCOL": "sparse",
		},
		Toolchain: "stable",
		Build: BuildConfig{
			Script:    "crates/wasm/build-docs.sh",
			OutputDir: "target/wasm32-unknown-unknown/doc",
		},
		Publish: PublishConfig{Branch: "gh-pages"},
	}
}

// ParseWorkflow parses and validates a workflow definition
func ParseWorkflow(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, goerr.Wrap(err, "failed to parse workflow definition")
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

// Validate checks the definition for the mistakes that would otherwise only
// surface mid-run
func (w *Workflow) Validate() error {
	if w.On.Push == nil && w.On.PullRequest == nil {
		return goerr.New("workflow has no triggers", goerr.V("workflow", w.Name))
	}
	if w.Toolchain == "" {
		return goerr.New("workflow toolchain must not be empty", goerr.V("workflow", w.Name))
	}
	if err := validateRepoRelPath("build.script", w.Build.Script); err != nil {
		return err
	}
	if err := validateRepoRelPath("build.output_dir", w.Build.OutputDir); err != nil {
		return err
	}
	if w.Publish.Branch == "" {
		return goerr.New("publish.branch must not be empty", goerr.V("workflow", w.Name))
	}
	return nil
}

// validateRepoRelPath rejects empty, absolute and parent-escaping paths.
// Both the script and the output dir are resolved inside the checkout.
func validateRepoRelPath(field, p string) error {
	if p == "" {
		return goerr.New("workflow path must not be empty", goerr.V("field", field))
	}
	if path.IsAbs(p) {
		return goerr.New("workflow path must be repository-relative",
			goerr.V("field", field), goerr.V("path", p))
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return goerr.New("workflow path escapes the repository",
			goerr.V("field", field), goerr.V("path", p))
	}
	return nil
}

// TriggersRun reports whether an event starts a run at all
func (w *Workflow) TriggersRun(eventType EventType, branch string) bool {
	switch eventType {
	case EventTypePush:
		return w.On.Push.Matches(branch)
	case EventTypePullRequest:
		return w.On.PullRequest != nil
	default:
		return false
	}
}

// ShouldPublish is the publish gate: only pushes to a configured push
// branch publish their output. Pull requests always build without
// publishing, whatever their branch.
func (w *Workflow) ShouldPublish(eventType EventType, branch string) bool {
	return eventType == EventTypePush && w.On.Push.Matches(branch)
}
