package workspace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/kgaudium/tentaclepreview/pkg/log"
	"github.com/kgaudium/tentaclepreview/pkg/scm"
)

// WorkspaceError wraps any source-control failure surfaced by Ensure,
// Fetch or Destroy.
type WorkspaceError struct {
	Branch string
	Op     string
	Err    error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace: %s %s: %v", e.Op, e.Branch, e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

// BusyError is returned by Destroy when the caller reports a live
// process still bound to the workspace.
type BusyError struct {
	Branch string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("workspace: %s is busy, refusing to destroy", e.Branch)
}

// LiveChecker reports whether a process is currently bound to a
// workspace; Destroy consults it to avoid removing a directory out
// from under a running tentacle.
type LiveChecker func() bool

// Workspace is the on-disk checkout for one branch.
type Workspace struct {
	Branch    string
	Path      string
	RemoteURL string
	Token     string

	client scm.Client
	isLive LiveChecker
}

// New constructs a Workspace rooted at filepath.Join(branchesDir,
// branch). The workspace directory is not created until Ensure is
// called.
func New(client scm.Client, branchesDir, remoteURL, token, branch string, isLive LiveChecker) *Workspace {
	if isLive == nil {
		isLive = func() bool { return false }
	}
	return &Workspace{
		Branch:    branch,
		Path:      filepath.Join(branchesDir, branch),
		RemoteURL: remoteURL,
		Token:     token,
		client:    client,
		isLive:    isLive,
	}
}

// Exists reports whether the workspace directory is already present on
// disk, i.e. whether Ensure would clone (false) or force-checkout
// (true). Callers use this to decide between Ensure and Fetch: only
// Fetch talks to the remote.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.Path)
	return err == nil
}

// Head returns the commit SHA the workspace's working tree currently
// points at.
func (w *Workspace) Head(ctx context.Context) (string, error) {
	sha, err := w.client.Head(ctx, w.Path)
	if err != nil {
		return "", &WorkspaceError{Branch: w.Branch, Op: "head", Err: err}
	}
	return sha, nil
}

// Ensure clones the branch into Path if the directory doesn't exist
// yet, or forces a clean checkout of branch if it does.
func (w *Workspace) Ensure(ctx context.Context) error {
	wlog := log.WithBranch(w.Branch)

	if _, err := os.Stat(w.Path); os.IsNotExist(err) {
		wlog.Info().Str("path", w.Path).Msg("cloning workspace")
		if err := w.client.Clone(ctx, w.authenticatedURL(), w.Branch, w.Path); err != nil {
			return &WorkspaceError{Branch: w.Branch, Op: "ensure", Err: err}
		}
		return nil
	}

	wlog.Debug().Str("path", w.Path).Msg("checking out existing workspace")
	if err := w.client.Checkout(ctx, w.Path, w.Branch); err != nil {
		return &WorkspaceError{Branch: w.Branch, Op: "ensure", Err: err}
	}
	return nil
}

// Fetch fetches all refs from origin with force and prune, then
// re-checks-out the branch. After Fetch succeeds, Head() == remoteSha
// for the branch.
func (w *Workspace) Fetch(ctx context.Context) error {
	if err := w.client.Fetch(ctx, w.Path, w.Branch); err != nil {
		return &WorkspaceError{Branch: w.Branch, Op: "fetch", Err: err}
	}
	return nil
}

// UpdateRequired reports whether the workspace is missing or its HEAD
// differs from remoteSha.
func (w *Workspace) UpdateRequired(ctx context.Context, remoteSha string) (bool, error) {
	if _, err := os.Stat(w.Path); os.IsNotExist(err) {
		return true, nil
	}

	localSha, err := w.client.Head(ctx, w.Path)
	if err != nil {
		return false, &WorkspaceError{Branch: w.Branch, Op: "update_required", Err: err}
	}

	return localSha != remoteSha, nil
}

// Destroy recursively removes the workspace directory. It refuses with
// BusyError if the owning supervisor reports a live process.
func (w *Workspace) Destroy() error {
	if w.isLive() {
		return &BusyError{Branch: w.Branch}
	}

	if err := os.RemoveAll(w.Path); err != nil {
		return &WorkspaceError{Branch: w.Branch, Op: "destroy", Err: err}
	}
	return nil
}

// authenticatedURL embeds Token into RemoteURL as a userinfo segment
// without ever making the token observable through logging: callers
// must log w.RemoteURL, not this value.
func (w *Workspace) authenticatedURL() string {
	if w.Token == "" {
		return w.RemoteURL
	}

	u, err := url.Parse(w.RemoteURL)
	if err != nil {
		return w.RemoteURL
	}
	u.User = url.UserPassword(w.Token, "x-oauth-basic")
	return u.String()
}
