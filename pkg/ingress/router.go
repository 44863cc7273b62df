package ingress

import (
	"net/url"
	"regexp"
)

// tentaclePathPattern matches the branch and remaining path of a
// /tentacle/<branch>/<path> request.
var tentaclePathPattern = regexp.MustCompile(`^/tentacle/([^/]+)/?(.*)$`)

// resolveBranch extracts the branch name and remaining path from a
// request path that carries the /tentacle/<branch>/ prefix.
func resolveBranch(path string) (branch, rest string, ok bool) {
	m := tentaclePathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// resolveBranchFromReferer applies the same pattern to the Referer
// header's path, for fallback requests (e.g. a stylesheet fetched by
// an absolute path that forgot the tentacle prefix because the
// browser already rewrote it, or an asset request that the HTML pass
// missed) that don't carry /tentacle/<branch>/ themselves.
func resolveBranchFromReferer(referer string) (branch string, ok bool) {
	if referer == "" {
		return "", false
	}
	u, err := url.Parse(referer)
	if err != nil {
		return "", false
	}
	branch, _, ok = resolveBranch(u.Path)
	return branch, ok
}
