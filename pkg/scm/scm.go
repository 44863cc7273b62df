// Package scm defines the narrow source-control surface the branch
// workspace needs: clone, fetch, checkout and HEAD lookup. It exists so
// pkg/workspace never imports a concrete git library directly; the two
// implementations under gogit and exec are interchangeable at
// construction time.
package scm

import "context"

// Client is the source-control surface a Workspace depends on.
type Client interface {
	// Clone performs a shallow clone (depth 1) of branch from remoteURL
	// into dir, which must not already exist.
	Clone(ctx context.Context, remoteURL, branch, dir string) error

	// Fetch fetches all refs from origin with force and prune, then
	// forcibly checks out branch so the working tree matches it exactly.
	Fetch(ctx context.Context, dir, branch string) error

	// Checkout forces the working tree in dir to match branch, discarding
	// local modifications.
	Checkout(ctx context.Context, dir, branch string) error

	// Head returns the commit SHA the working tree in dir currently
	// points at.
	Head(ctx context.Context, dir string) (string, error)
}
