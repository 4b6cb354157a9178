package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/m-mizutani/goerr/v2"

	"github.com/mkurata/docship/pkg/domain/model"
)

const (
	// tokenUser is the username GitHub expects for token auth over HTTPS
	tokenUser = "x-access-token"

	committerName  = "docship"
	committerEmail = "docship@users.noreply.github.com"
)

// Client performs git checkout and publish operations via go-git
type Client struct {
	token string
}

// NewClient creates a git client. token may be empty for public repositories;
// publishing always requires it.
func NewClient(token string) *Client {
	return &Client{token: token}
}

func (c *Client) auth() *githttp.BasicAuth {
	if c.token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: tokenUser, Password: c.token}
}

// Fetch clones the repository into dir and hard-checks-out commitSHA.
// An empty commitSHA leaves the clone at the remote HEAD.
func (c *Client) Fetch(ctx context.Context, repo model.Repository, commitSHA, dir string) (string, error) {
	var progress bytes.Buffer

	cloneOpts := &git.CloneOptions{
		URL:      repo.CloneURL,
		Progress: &progress,
	}
	if auth := c.auth(); auth != nil {
		cloneOpts.Auth = auth
	}

	repository, err := git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return progress.String(), goerr.Wrap(err, "failed to clone repository",
			goerr.V("repo", repo.FullName()),
			goerr.V("url", repo.CloneURL),
		)
	}

	if commitSHA != "" {
		wt, err := repository.Worktree()
		if err != nil {
			return progress.String(), goerr.Wrap(err, "failed to get worktree", goerr.V("repo", repo.FullName()))
		}
		if err := wt.Checkout(&git.CheckoutOptions{
			Hash:  plumbing.NewHash(commitSHA),
			Force: true,
		}); err != nil {
			return progress.String(), goerr.Wrap(err, "failed to check out commit",
				goerr.V("repo", repo.FullName()),
				goerr.V("commit", commitSHA),
			)
		}
	}

	head, err := repository.Head()
	if err != nil {
		return progress.String(), goerr.Wrap(err, "failed to resolve HEAD after checkout")
	}
	fmt.Fprintf(&progress, "checked out %s at %s\n", repo.FullName(), head.Hash())

	return progress.String(), nil
}

// Publish mirrors srcDir's contents to branch on the repository's remote.
// The branch history is replaced, not appended to: each publish is a single
// orphan commit force-pushed over the previous one, the way static hosting
// deploy actions behave.
func (c *Client) Publish(ctx context.Context, srcDir string, repo model.Repository, branch, message string) (string, error) {
	var out bytes.Buffer

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return "", goerr.Wrap(err, "publish directory is not readable", goerr.V("dir", srcDir))
	}
	if len(entries) == 0 {
		return "", goerr.New("publish directory is empty", goerr.V("dir", srcDir))
	}

	stage, err := os.MkdirTemp("", "docship-publish-*")
	if err != nil {
		return "", goerr.Wrap(err, "failed to create staging directory")
	}
	defer os.RemoveAll(stage)

	if err := os.CopyFS(stage, os.DirFS(srcDir)); err != nil {
		return "", goerr.Wrap(err, "failed to stage publish directory", goerr.V("dir", srcDir))
	}

	repository, err := git.PlainInit(stage, false)
	if err != nil {
		return "", goerr.Wrap(err, "failed to init staging repository")
	}
	wt, err := repository.Worktree()
	if err != nil {
		return "", goerr.Wrap(err, "failed to get staging worktree")
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", goerr.Wrap(err, "failed to stage published files")
	}

	commit, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to commit published files")
	}

	if _, err := repository.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repo.CloneURL},
	}); err != nil {
		return "", goerr.Wrap(err, "failed to configure publish remote", goerr.V("url", repo.CloneURL))
	}

	head, err := repository.Head()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve staging HEAD")
	}

	pushOpts := &git.PushOptions{
		RemoteName: "origin",
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("+%s:refs/heads/%s", head.Name(), branch)),
		},
		Force:    true,
		Progress: &out,
	}
	if auth := c.auth(); auth != nil {
		pushOpts.Auth = auth
	}

	if err := repository.PushContext(ctx, pushOpts); err != nil {
		return out.String(), goerr.Wrap(err, "failed to push to hosting branch",
			goerr.V("repo", repo.FullName()),
			goerr.V("branch", branch),
		)
	}

	fmt.Fprintf(&out, "published %d entries to %s@%s as %s\n", len(entries), repo.FullName(), branch, commit)
	return out.String(), nil
}
