/*
Package workspace manages the on-disk checkout backing one tentacle.

A Workspace wraps a directory under the configured branches root and a
pkg/scm.Client used to populate and update it. It is source-control-
client-agnostic: the caller selects a gogit- or exec-backed Client at
construction, matching the teacher's pattern of injecting narrow
collaborator interfaces rather than importing a concrete transport
directly.

Ensure clones the branch on first use and re-checks-out on every
subsequent call; Fetch brings the workspace fully up to date with
origin; UpdateRequired answers whether a Fetch is needed without
performing one; Destroy removes the workspace directory, refusing to
do so while an owning process is reported live.

Remote URLs carrying an auth token are rewritten to embed it inline
before being handed to the scm.Client; the token itself is never
logged.
*/
package workspace
