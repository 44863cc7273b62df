package tentacle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgaudium/tentaclepreview/pkg/runner"
)

type fakeWorkspace struct {
	exists         bool
	ensureErr      error
	fetchErr       error
	destroyErr     error
	headSha        string
	headErr        error
	updateRequired bool
	updateReqErr   error
	ensured        bool
	fetched        bool
	destroyed      bool
}

func (w *fakeWorkspace) Exists() bool                     { return w.exists }
func (w *fakeWorkspace) Ensure(ctx context.Context) error { w.ensured = true; return w.ensureErr }
func (w *fakeWorkspace) Fetch(ctx context.Context) error  { w.fetched = true; return w.fetchErr }
func (w *fakeWorkspace) Destroy() error                   { w.destroyed = true; return w.destroyErr }
func (w *fakeWorkspace) Head(ctx context.Context) (string, error) { return w.headSha, w.headErr }
func (w *fakeWorkspace) UpdateRequired(ctx context.Context, remoteSha string) (bool, error) {
	return w.updateRequired, w.updateReqErr
}

type recordingObserver struct {
	statuses []Status
	logs     []string
}

func (o *recordingObserver) OnStatus(t *Tentacle) {
	o.statuses = append(o.statuses, t.BuildStatus())
}
func (o *recordingObserver) OnLog(branch, kind, line string) {
	o.logs = append(o.logs, kind+":"+line)
}

type fakeHandle struct {
	terminated  bool
	stdout      chan string
	stderr      chan string
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{stdout: make(chan string), stderr: make(chan string)}
}

func (h *fakeHandle) Stream() (<-chan string, <-chan string) { return h.stdout, h.stderr }
func (h *fakeHandle) Terminate(grace time.Duration) error    { h.terminated = true; return nil }
func (h *fakeHandle) PID() int                               { return 4242 }

func newTestTentacle(t *testing.T, commands Commands) *Tentacle {
	t.Helper()
	tent, err := New("feat/login", t.TempDir(), "", commands)
	require.NoError(t, err)
	return tent
}

func TestBuild_AllStepsSucceed(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make {branch}", "make test"}})
	obs := &recordingObserver{}
	sup := NewSupervisor(tent, &fakeWorkspace{}, obs)
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		return runner.Result{ExitCode: 0, Stdout: "ok\n"}, nil
	}

	require.NoError(t, sup.Build(context.Background()))
	assert.Equal(t, StatusSuccess, tent.BuildStatus())
	assert.Len(t, tent.BuildLog(), 2)
	assert.Equal(t, "make feat/login", tent.BuildLog()[0].Command)
}

func TestBuild_StopsAtFirstFailure(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"step1", "step2", "step3"}})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)

	calls := 0
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		calls++
		if cmd == "step2" {
			return runner.Result{ExitCode: 1, Stderr: "boom"}, nil
		}
		return runner.Result{ExitCode: 0}, nil
	}

	err := sup.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailure, tent.BuildStatus())
	assert.Equal(t, 2, calls, "must not run step3 after step2 fails")
}

func TestBuild_SkipsEmptyTemplates(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"", "make"}})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		return runner.Result{ExitCode: 0}, nil
	}

	require.NoError(t, sup.Build(context.Background()))
	assert.Len(t, tent.BuildLog(), 1)
}

func TestBuild_RejectsUnknownPlaceholder(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make {bogus}"}})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)
	ran := false
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		ran = true
		return runner.Result{ExitCode: 0}, nil
	}

	err := sup.Build(context.Background())
	require.Error(t, err)
	assert.False(t, ran, "must not spawn any process when a template is invalid")
	assert.Equal(t, StatusFailure, tent.BuildStatus())
}

func TestStart_IdempotentWhenAlreadyRunning(t *testing.T) {
	tent := newTestTentacle(t, Commands{Start: "serve"})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)

	h := newFakeHandle()
	close(h.stdout)
	close(h.stderr)
	tent.handle = h

	spawnCalls := 0
	sup.spawn = func(cmd, cwd string) (processHandle, error) {
		spawnCalls++
		return newFakeHandle(), nil
	}

	require.NoError(t, sup.Start(context.Background()))
	assert.Equal(t, 0, spawnCalls)
}

func TestStart_SpawnsAndCollectsLogs(t *testing.T) {
	tent := newTestTentacle(t, Commands{Start: "serve --port {port}"})
	obs := &recordingObserver{}
	sup := NewSupervisor(tent, &fakeWorkspace{}, obs)

	h := newFakeHandle()
	sup.spawn = func(cmd, cwd string) (processHandle, error) {
		assert.Contains(t, cmd, "--port")
		return h, nil
	}

	require.NoError(t, sup.Start(context.Background()))
	assert.Equal(t, StatusSuccess, tent.StartStatus())
	assert.True(t, tent.IsLive())

	h.stdout <- "listening"
	close(h.stdout)
	close(h.stderr)

	require.Eventually(t, func() bool {
		return len(tent.StartLog()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStop_IdempotentOnNeverStarted(t *testing.T) {
	tent := newTestTentacle(t, Commands{})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)

	require.NoError(t, sup.Stop())
	require.NoError(t, sup.Stop())
	assert.Equal(t, StatusUnknown, tent.BuildStatus())
	assert.Equal(t, StatusUnknown, tent.StartStatus())
}

func TestStop_TerminatesLiveProcessAndResetsStatus(t *testing.T) {
	tent := newTestTentacle(t, Commands{})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)

	h := newFakeHandle()
	tent.handle = h
	tent.buildSuccess = StatusSuccess
	tent.startSuccess = StatusSuccess

	require.NoError(t, sup.Stop())
	assert.True(t, h.terminated)
	assert.False(t, tent.IsLive())
	assert.Equal(t, StatusUnknown, tent.BuildStatus())
	assert.Equal(t, StatusUnknown, tent.StartStatus())
}

func TestUpdate_CleanDestroysWorkspaceFirst(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make"}, Start: "serve"})
	ws := &fakeWorkspace{}
	sup := NewSupervisor(tent, ws, nil)
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		return runner.Result{ExitCode: 0}, nil
	}
	sup.spawn = func(cmd, cwd string) (processHandle, error) { return newFakeHandle(), nil }

	require.NoError(t, sup.Update(context.Background(), true))
	assert.True(t, ws.destroyed)
	assert.True(t, ws.ensured)
	assert.Equal(t, StatusSuccess, tent.BuildStatus())
	assert.Equal(t, StatusSuccess, tent.StartStatus())
}

func TestUpdate_NotCleanSkipsDestroy(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make"}, Start: "serve"})
	ws := &fakeWorkspace{}
	sup := NewSupervisor(tent, ws, nil)
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		return runner.Result{ExitCode: 0}, nil
	}
	sup.spawn = func(cmd, cwd string) (processHandle, error) { return newFakeHandle(), nil }

	require.NoError(t, sup.Update(context.Background(), false))
	assert.False(t, ws.destroyed)
	assert.True(t, ws.ensured)
}

func TestUpdate_ExistingWorkspaceFetchesInsteadOfEnsuring(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make"}, Start: "serve"})
	ws := &fakeWorkspace{exists: true, headSha: "abc123"}
	sup := NewSupervisor(tent, ws, nil)
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		return runner.Result{ExitCode: 0}, nil
	}
	sup.spawn = func(cmd, cwd string) (processHandle, error) { return newFakeHandle(), nil }

	require.NoError(t, sup.Update(context.Background(), false))
	assert.True(t, ws.fetched, "must fetch when the workspace already exists")
	assert.False(t, ws.ensured, "must not re-clone an existing workspace")
	assert.Equal(t, "abc123", tent.LocalSha)
}

func TestUpdate_WorkspaceEnsureFailureStopsChain(t *testing.T) {
	tent := newTestTentacle(t, Commands{Build: []string{"make"}})
	ws := &fakeWorkspace{ensureErr: errors.New("clone failed")}
	sup := NewSupervisor(tent, ws, nil)
	built := false
	sup.runSync = func(ctx context.Context, cmd, cwd string) (runner.Result, error) {
		built = true
		return runner.Result{ExitCode: 0}, nil
	}

	err := sup.Update(context.Background(), false)
	require.Error(t, err)
	assert.False(t, built)
}

func TestPortUniqueAcrossTentacles(t *testing.T) {
	a := newTestTentacle(t, Commands{})
	b := newTestTentacle(t, Commands{})
	assert.NotEqual(t, a.Port(), b.Port())
}

func TestGetLogs_UnknownKind(t *testing.T) {
	tent := newTestTentacle(t, Commands{})
	sup := NewSupervisor(tent, &fakeWorkspace{}, nil)

	_, err := sup.GetLogs("bogus")
	require.Error(t, err)
}
