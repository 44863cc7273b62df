package tentacle

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the tri-state outcome of a build or start attempt. It is a
// tagged variant rather than a nullable boolean because "hasn't run
// yet" and "ran and failed" are both distinct from "succeeded" and
// must be distinguishable in the dashboard and the fleet map.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// BuildRecord is one command's outcome within a build pipeline run.
type BuildRecord struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Tentacle is one preview environment for one watched branch.
type Tentacle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // branch identifier, may contain '/'
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspacePath string `json:"workspace_path"`
	RemoteSha     string `json:"remote_sha"`
	LocalSha      string `json:"local_sha,omitempty"`

	Commands Commands `json:"commands"`

	Host string `json:"host"`
	port int    // guarded by mu; chosen once at construction

	mu           sync.RWMutex
	buildSuccess Status
	startSuccess Status
	buildLog     []BuildRecord
	startLog     []string
	handle       processHandle
}

// Commands is the build/start command template set for one tentacle.
type Commands struct {
	Build []string `yaml:"build" json:"build"`
	Start string   `yaml:"start" json:"start"`
}

// processHandle is the narrow subset of *runner.Handle the supervisor
// depends on, so this package doesn't need to import pkg/runner for
// its own type declarations beyond the interface it actually calls.
type processHandle interface {
	Stream() (<-chan string, <-chan string)
	Terminate(grace time.Duration) error
	PID() int
}

// New constructs a Tentacle bound to name, assigning it an ephemeral
// port via a throwaway socket probe (see assignPort). host defaults to
// 127.0.0.1 when empty.
func New(name, workspacePath, host string, commands Commands) (*Tentacle, error) {
	if host == "" {
		host = "127.0.0.1"
	}

	port, err := assignPort()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Tentacle{
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     now,
		UpdatedAt:     now,
		WorkspacePath: workspacePath,
		Commands:      commands,
		Host:          host,
		port:          port,
		buildSuccess:  StatusUnknown,
		startSuccess:  StatusUnknown,
	}, nil
}

// Port returns the tentacle's assigned port.
func (t *Tentacle) Port() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.port
}

// setPort overrides the assigned port. Unexported: callers outside the
// package cannot silently rebind a tentacle already registered in the
// fleet, and the override is not revalidated for availability (see
// Design Notes on the port setter).
func (t *Tentacle) setPort(port int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.port = port
}

// BuildStatus returns the current build outcome.
func (t *Tentacle) BuildStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buildSuccess
}

// StartStatus returns the current start outcome.
func (t *Tentacle) StartStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startSuccess
}

// IsLive reports whether a process handle is currently bound. Used by
// pkg/workspace's LiveChecker to refuse Destroy while a process runs.
func (t *Tentacle) IsLive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handle != nil
}

// setLocalSha records the workspace's current HEAD after a successful
// Ensure or Fetch. Unexported: only the supervisor that owns the
// workspace may update it.
func (t *Tentacle) setLocalSha(sha string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.LocalSha = sha
}

// BuildLog returns the build log by reference; callers must not mutate
// the returned slice.
func (t *Tentacle) BuildLog() []BuildRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buildLog
}

// StartLog returns the start log by reference; callers must not
// mutate the returned slice.
func (t *Tentacle) StartLog() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startLog
}

// Snapshot is the JSON-serializable view of a tentacle exposed over
// the dashboard API and the event bus.
type Snapshot struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	IsBuildSuccess  *bool  `json:"is_build_success"`
	IsStartSuccess  *bool  `json:"is_start_success"`
	LastCommit      string `json:"last_commit"`
}

// ToSnapshot renders the tentacle's tri-state statuses into the
// three-valued JSON the dashboard API expects: null for unknown, true
// or false otherwise.
func (t *Tentacle) ToSnapshot(baseURL string) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Snapshot{
		Name:           t.Name,
		URL:            baseURL,
		IsBuildSuccess: statusToBool(t.buildSuccess),
		IsStartSuccess: statusToBool(t.startSuccess),
		LastCommit:     t.LocalSha,
	}
}

func statusToBool(s Status) *bool {
	switch s {
	case StatusSuccess:
		v := true
		return &v
	case StatusFailure:
		v := false
		return &v
	default:
		return nil
	}
}
