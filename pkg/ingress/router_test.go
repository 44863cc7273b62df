package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBranch_WithPath(t *testing.T) {
	branch, rest, ok := resolveBranch("/tentacle/main/api/users")
	assert.True(t, ok)
	assert.Equal(t, "main", branch)
	assert.Equal(t, "api/users", rest)
}

func TestResolveBranch_NoTrailingPath(t *testing.T) {
	branch, rest, ok := resolveBranch("/tentacle/main")
	assert.True(t, ok)
	assert.Equal(t, "main", branch)
	assert.Equal(t, "", rest)
}

func TestResolveBranch_NotAPrefixMatch(t *testing.T) {
	_, _, ok := resolveBranch("/favicon.ico")
	assert.False(t, ok)
}

func TestResolveBranchFromReferer_ExtractsBranch(t *testing.T) {
	branch, ok := resolveBranchFromReferer("http://localhost:8080/tentacle/main/app.css")
	assert.True(t, ok)
	assert.Equal(t, "main", branch)
}

func TestResolveBranchFromReferer_EmptyReferer(t *testing.T) {
	_, ok := resolveBranchFromReferer("")
	assert.False(t, ok)
}

func TestResolveBranchFromReferer_NoMatch(t *testing.T) {
	_, ok := resolveBranchFromReferer("http://localhost:8080/other")
	assert.False(t, ok)
}
