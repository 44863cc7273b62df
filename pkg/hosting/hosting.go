// Package hosting defines the narrow surface the fleet controller
// needs from the repository's hosting API: branch enumeration (with each
// branch's head commit SHA) and the clone URL. A concrete implementation (pkg/hosting/github) is
// injected at construction so pkg/fleet never imports a hosting SDK
// directly.
package hosting

import "context"

// Branch is one branch as reported by the hosting API.
type Branch struct {
	Name string
	SHA  string
}

// Client is the hosting-API surface the Fleet Controller depends on.
type Client interface {
	// ListBranches returns every branch of the watched repository.
	ListBranches(ctx context.Context) ([]Branch, error)
	// CloneURL returns the repository's clone URL (without an
	// embedded token; pkg/workspace embeds the token itself).
	CloneURL() string
}

// HostingAPIError wraps any failure from ListBranches. Fleet.Init is the
// only caller and returns it, which is fatal at startup; webhook
// handling never calls ListBranches.
type HostingAPIError struct {
	Op  string
	Err error
}

func (e *HostingAPIError) Error() string {
	return "hosting: " + e.Op + ": " + e.Err.Error()
}

func (e *HostingAPIError) Unwrap() error { return e.Err }
