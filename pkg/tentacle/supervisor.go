package tentacle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kgaudium/tentaclepreview/pkg/log"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
	"github.com/kgaudium/tentaclepreview/pkg/runner"
)

// Workspace is the narrow subset of pkg/workspace.Workspace the
// supervisor depends on, so this package doesn't import it directly
// and tests can substitute a stub.
type Workspace interface {
	Exists() bool
	Ensure(ctx context.Context) error
	Fetch(ctx context.Context) error
	Destroy() error
	Head(ctx context.Context) (string, error)
	UpdateRequired(ctx context.Context, remoteSha string) (bool, error)
}

// syncRunnerFunc and spawnFunc let tests substitute pkg/runner with a
// stub; NewSupervisor installs the real runner package.
type syncRunnerFunc func(ctx context.Context, cmd, cwd string) (runner.Result, error)
type spawnFunc func(cmd, cwd string) (processHandle, error)

// Supervisor owns one Tentacle's full lifecycle: build, start, stop,
// and update. stop → build → start are strictly serialized per
// Supervisor by mu; no two ever overlap for the same tentacle.
type Supervisor struct {
	Tentacle  *Tentacle
	Workspace Workspace

	mu       sync.Mutex
	observer Observer
	runSync  syncRunnerFunc
	spawn    spawnFunc
}

// NewSupervisor constructs a Supervisor over an already-constructed
// Tentacle and its Workspace. observer may be nil, in which case
// broadcasts are a no-op.
func NewSupervisor(t *Tentacle, ws Workspace, observer Observer) *Supervisor {
	if observer == nil {
		observer = DefaultObserver
	}
	return &Supervisor{
		Tentacle:  t,
		Workspace: ws,
		observer:  observer,
		runSync:   runner.RunSync,
		spawn: func(cmd, cwd string) (processHandle, error) {
			return runner.Spawn(cmd, cwd)
		},
	}
}

func (s *Supervisor) ctx(t *Tentacle) CommandContext {
	return CommandContext{Host: t.Host, Port: t.Port(), Path: t.WorkspacePath, Branch: t.Name}
}

// Build renders and runs each build command template in order,
// stopping at the first non-zero exit. Empty rendered templates are
// skipped.
func (s *Supervisor) Build(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Tentacle
	blog := log.WithBranch(t.Name)
	timer := metrics.NewTimer()

	t.mu.Lock()
	t.buildLog = nil
	t.mu.Unlock()

	cmdCtx := s.ctx(t)

	for _, tmpl := range t.Commands.Build {
		if tmpl == "" {
			continue
		}

		cmd, err := renderCommand(tmpl, cmdCtx)
		if err != nil {
			s.failBuild(t, BuildRecord{Command: tmpl, Output: err.Error(), ExitCode: -1})
			metrics.BuildsTotal.WithLabelValues("render_error").Inc()
			timer.ObserveDuration(metrics.BuildDuration)
			return err
		}

		result, err := s.runSync(ctx, cmd, t.WorkspacePath)
		if err != nil {
			s.failBuild(t, BuildRecord{Command: cmd, Output: err.Error(), ExitCode: -1})
			metrics.BuildsTotal.WithLabelValues("error").Inc()
			timer.ObserveDuration(metrics.BuildDuration)
			return err
		}

		record := BuildRecord{Command: cmd, Output: result.Stdout + result.Stderr, ExitCode: result.ExitCode}
		t.mu.Lock()
		t.buildLog = append(t.buildLog, record)
		t.mu.Unlock()
		s.observer.OnLog(t.Name, "build", fmt.Sprintf("$ %s", cmd))

		if result.ExitCode != 0 {
			blog.Warn().Str("cmd", cmd).Int("exit_code", result.ExitCode).Msg("build step failed")
			s.setBuildStatus(t, StatusFailure)
			metrics.BuildsTotal.WithLabelValues("failure").Inc()
			timer.ObserveDuration(metrics.BuildDuration)
			return fmt.Errorf("tentacle: build step %q exited %d", cmd, result.ExitCode)
		}
	}

	s.setBuildStatus(t, StatusSuccess)
	metrics.BuildsTotal.WithLabelValues("success").Inc()
	timer.ObserveDuration(metrics.BuildDuration)
	return nil
}

func (s *Supervisor) failBuild(t *Tentacle, record BuildRecord) {
	t.mu.Lock()
	t.buildLog = append(t.buildLog, record)
	t.mu.Unlock()
	s.setBuildStatus(t, StatusFailure)
}

func (s *Supervisor) setBuildStatus(t *Tentacle, status Status) {
	t.mu.Lock()
	t.buildSuccess = status
	t.UpdatedAt = time.Now()
	t.mu.Unlock()
	s.observer.OnStatus(t)
}

func (s *Supervisor) setStartStatus(t *Tentacle, status Status) {
	t.mu.Lock()
	t.startSuccess = status
	t.UpdatedAt = time.Now()
	t.mu.Unlock()
	s.observer.OnStatus(t)
}

// Start is idempotent with respect to an already-running process: if
// one is live, it logs a warning and returns. Otherwise it resets the
// start log and status, renders the start template, spawns the
// process, and launches the stdout/stderr readers.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Tentacle
	slog := log.WithBranch(t.Name)

	if t.IsLive() {
		slog.Warn().Msg("start requested but a process is already running")
		return nil
	}

	t.mu.Lock()
	t.startLog = nil
	t.mu.Unlock()
	s.setStartStatus(t, StatusUnknown)

	cmd, err := renderCommand(t.Commands.Start, s.ctx(t))
	if err != nil {
		s.setStartStatus(t, StatusFailure)
		metrics.StartsTotal.WithLabelValues("render_error").Inc()
		return err
	}

	handle, err := s.spawn(cmd, t.WorkspacePath)
	if err != nil {
		slog.Error().Err(err).Str("cmd", cmd).Msg("spawn failed")
		s.setStartStatus(t, StatusFailure)
		metrics.StartsTotal.WithLabelValues("error").Inc()
		return err
	}

	t.mu.Lock()
	t.handle = handle
	t.mu.Unlock()

	s.setStartStatus(t, StatusSuccess)
	metrics.StartsTotal.WithLabelValues("success").Inc()

	stdout, stderr := handle.Stream()
	var readers sync.WaitGroup
	readers.Add(2)
	go func() { defer readers.Done(); s.collect(t, "stdout", stdout) }()
	go func() { defer readers.Done(); s.collect(t, "stderr", stderr) }()
	go func() {
		readers.Wait()
		t.mu.RLock()
		unobserved := t.handle == handle && t.startSuccess == StatusSuccess
		t.mu.RUnlock()
		if unobserved {
			slog.Debug().Msg("process_exited_unobserved")
		}
	}()

	return nil
}

func (s *Supervisor) collect(t *Tentacle, stream string, lines <-chan string) {
	for line := range lines {
		t.mu.Lock()
		t.startLog = append(t.startLog, line)
		t.mu.Unlock()
		s.observer.OnLog(t.Name, "start", line)
	}
	_ = stream
}

// Stop terminates the live process, if any, via the runner (force-
// killing on grace timeout), then always clears both statuses back to
// unknown and drops the process handle. Safe to call on a never-
// started or already-stopped tentacle.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.Tentacle
	slog := log.WithBranch(t.Name)

	t.mu.Lock()
	handle := t.handle
	t.mu.Unlock()

	if handle == nil {
		slog.Info().Msg("stop requested, nothing running")
	} else {
		if err := handle.Terminate(runner.DefaultGrace); err != nil {
			slog.Warn().Err(err).Msg("terminate reported an error")
		}
		metrics.StopsTotal.Inc()
	}

	t.mu.Lock()
	t.handle = nil
	t.buildSuccess = StatusUnknown
	t.startSuccess = StatusUnknown
	t.UpdatedAt = time.Now()
	t.mu.Unlock()

	s.observer.OnStatus(t)
	return nil
}

// Update stops the tentacle, optionally destroys its workspace
// (clean==true), brings the workspace up to date, then rebuilds and
// restarts it.
func (s *Supervisor) Update(ctx context.Context, clean bool) error {
	if err := s.Stop(); err != nil {
		return err
	}

	if clean {
		if err := s.Workspace.Destroy(); err != nil {
			return err
		}
	}

	if err := s.EnsureWorkspace(ctx); err != nil {
		return err
	}

	if err := s.Build(ctx); err != nil {
		return err
	}

	return s.Start(ctx)
}

// EnsureWorkspace brings the workspace up to date with origin: Fetch
// (which pulls new commits) when it already exists on disk, Ensure
// (clone, or force-checkout of an already-known ref) when it doesn't.
// Ensure alone never talks to the remote, so calling it unconditionally
// on an existing workspace would never pick up new pushes. On success
// it refreshes Tentacle.LocalSha from the workspace's new HEAD; a
// failure to read HEAD is logged and does not fail the update.
func (s *Supervisor) EnsureWorkspace(ctx context.Context) error {
	blog := log.WithBranch(s.Tentacle.Name)

	var err error
	if s.Workspace.Exists() {
		if required, reqErr := s.Workspace.UpdateRequired(ctx, s.Tentacle.RemoteSha); reqErr != nil {
			blog.Warn().Err(reqErr).Msg("failed to check whether an update is required")
		} else {
			blog.Info().Bool("update_required", required).Msg("fetching workspace")
		}
		err = s.Workspace.Fetch(ctx)
	} else {
		err = s.Workspace.Ensure(ctx)
	}
	if err != nil {
		return err
	}

	sha, err := s.Workspace.Head(ctx)
	if err != nil {
		log.WithBranch(s.Tentacle.Name).Warn().Err(err).Msg("failed to read workspace head")
		return nil
	}
	s.Tentacle.setLocalSha(sha)
	return nil
}

// GetLogs returns the build or start log buffer by reference for
// kind == "build" or "start".
func (s *Supervisor) GetLogs(kind string) (interface{}, error) {
	t := s.Tentacle
	switch kind {
	case "build":
		return t.BuildLog(), nil
	case "start":
		return t.StartLog(), nil
	default:
		return nil, fmt.Errorf("tentacle: unknown log kind %q", kind)
	}
}
