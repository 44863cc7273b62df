// Package exec implements pkg/scm.Client by shelling out to the git
// binary via pkg/runner.RunSync, for environments where go-git's
// transports aren't suitable (e.g. an exotic auth scheme the host
// supports only through the git CLI's own credential helpers).
package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/kgaudium/tentaclepreview/pkg/runner"
)

// Client implements scm.Client by invoking the git binary.
type Client struct{}

// New returns a git-CLI backed source-control client.
func New() *Client {
	return &Client{}
}

func (c *Client) Clone(ctx context.Context, remoteURL, branch, dir string) error {
	cmd := fmt.Sprintf("git clone --depth 1 --branch %s --single-branch %s %s",
		shellQuote(branch), shellQuote(remoteURL), shellQuote(dir))
	return run(ctx, cmd, ".")
}

func (c *Client) Fetch(ctx context.Context, dir, branch string) error {
	if err := run(ctx, "git fetch --force --prune origin '+refs/*:refs/*'", dir); err != nil {
		return err
	}
	return c.Checkout(ctx, dir, branch)
}

func (c *Client) Checkout(ctx context.Context, dir, branch string) error {
	cmd := fmt.Sprintf("git checkout --force %s", shellQuote(branch))
	return run(ctx, cmd, dir)
}

func (c *Client) Head(ctx context.Context, dir string) (string, error) {
	result, err := runner.RunSync(ctx, "git rev-parse HEAD", dir)
	if err != nil {
		return "", fmt.Errorf("exec: head: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("exec: head: git rev-parse exited %d: %s", result.ExitCode, result.Stderr)
	}
	return strings.TrimSpace(result.Stdout), nil
}

func run(ctx context.Context, cmd, cwd string) error {
	result, err := runner.RunSync(ctx, cmd, cwd)
	if err != nil {
		return fmt.Errorf("exec: %s: %w", cmd, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("exec: %s: exited %d: %s", cmd, result.ExitCode, result.Stderr)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
