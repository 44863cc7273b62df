// Package gogit implements pkg/scm.Client on top of go-git, avoiding a
// dependency on the git binary being present on PATH.
package gogit

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Client implements scm.Client using github.com/go-git/go-git/v5.
type Client struct{}

// New returns a go-git backed source-control client.
func New() *Client {
	return &Client{}
}

func (c *Client) Clone(ctx context.Context, remoteURL, branch, dir string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           remoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return fmt.Errorf("gogit: clone %s: %w", branch, err)
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context, dir, branch string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("gogit: open %s: %w", dir, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{"+refs/*:refs/*"},
		Force:      true,
		Prune:      true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("gogit: fetch: %w", err)
	}

	return c.Checkout(ctx, dir, branch)
}

func (c *Client) Checkout(ctx context.Context, dir, branch string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("gogit: open %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("gogit: worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	remoteRef := plumbing.NewRemoteReferenceName("origin", branch)

	hash, err := repo.ResolveRevision(plumbing.Revision(remoteRef))
	if err != nil {
		hash, err = repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			return fmt.Errorf("gogit: resolve %s: %w", branch, err)
		}
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		return fmt.Errorf("gogit: checkout %s: %w", branch, err)
	}

	return nil
}

func (c *Client) Head(ctx context.Context, dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("gogit: open %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("gogit: head: %w", err)
	}

	return head.Hash().String(), nil
}
