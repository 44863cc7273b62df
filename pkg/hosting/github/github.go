// Package github implements pkg/hosting.Client against the GitHub API
// using google/go-github, authenticated via golang.org/x/oauth2's
// static token source.
package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/kgaudium/tentaclepreview/pkg/hosting"
)

// Client implements hosting.Client against a single owner/repo pair.
type Client struct {
	owner string
	repo  string
	gh    *github.Client
}

// New constructs a GitHub-backed hosting client. repoFullName is
// "owner/repo"; token authenticates both the REST calls and (via
// pkg/workspace) the clone URL.
func New(token, repoFullName string) (*Client, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)

	return &Client{
		owner: owner,
		repo:  repo,
		gh:    github.NewClient(httpClient),
	}, nil
}

func splitFullName(full string) (owner, repo string, err error) {
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			return full[:i], full[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("hosting/github: %q is not in owner/repo form", full)
}

func (c *Client) ListBranches(ctx context.Context) ([]hosting.Branch, error) {
	var all []hosting.Branch
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, &hosting.HostingAPIError{Op: "list_branches", Err: err}
		}
		for _, b := range branches {
			sha := ""
			if b.Commit != nil && b.Commit.SHA != nil {
				sha = *b.Commit.SHA
			}
			all = append(all, hosting.Branch{Name: b.GetName(), SHA: sha})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *Client) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", c.owner, c.repo)
}
