package fleet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kgaudium/tentaclepreview/pkg/config"
	"github.com/kgaudium/tentaclepreview/pkg/events"
	"github.com/kgaudium/tentaclepreview/pkg/hosting"
	"github.com/kgaudium/tentaclepreview/pkg/log"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
	"github.com/kgaudium/tentaclepreview/pkg/scm/gogit"
	"github.com/kgaudium/tentaclepreview/pkg/tentacle"
	"github.com/kgaudium/tentaclepreview/pkg/workspace"
)

// deletedRef is the all-zero SHA GitHub sends as "after" on a branch
// deletion push event.
const deletedRef = "0000000000000000000000000000000000000000"

// unit is one fleet member: a tentacle, its supervisor, and its
// backing workspace.
type unit struct {
	supervisor *tentacle.Supervisor
	workspace  *workspace.Workspace
}

// Fleet is the Fleet Controller: the set of live tentacles plus the
// system log.
type Fleet struct {
	cfg    *config.Config
	host   hosting.Client
	broker *events.Broker

	mu    sync.RWMutex
	units map[string]*unit
	order []string // insertion order, for deterministic dashboard output

	// knownBranches is a copy of order: the names of the branches that
	// are fleet members (remote branches that passed the filter and were
	// constructed), refreshed at Init and on every webhook create/delete.
	// Remote branches excluded by the filter are not in it. KnownBranches
	// exposes it so callers (the dashboard list endpoint) don't need a
	// fresh hosting.Client.ListBranches round trip; no periodic re-poll
	// happens independently of those two triggers.
	knownBranches []string

	systemMu  sync.Mutex
	systemLog []SystemLogEntry
}

// SystemLogEntry is one fleet-wide structured log line surfaced on the
// dashboard and the event bus.
type SystemLogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// New constructs a Fleet Controller. Call Init to perform the startup
// reconciliation pass.
func New(cfg *config.Config, host hosting.Client, broker *events.Broker) *Fleet {
	return &Fleet{
		cfg:    cfg,
		host:   host,
		broker: broker,
		units:  make(map[string]*unit),
	}
}

// Init loads the remote branch list, applies the filter, reconciles
// local workspace directories against the surviving set, constructs a
// Supervisor per surviving branch, then builds and starts each one in
// insertion order.
func (f *Fleet) Init(ctx context.Context) error {
	flog := log.WithComponent("fleet")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

	branches, err := f.host.ListBranches(ctx)
	if err != nil {
		return &hosting.HostingAPIError{Op: "init", Err: err}
	}

	surviving := f.filterBranches(branches)
	f.reconcileLocalDirectories(surviving)

	f.mu.Lock()
	for _, b := range surviving {
		u, err := f.newUnit(b.Name, b.SHA)
		if err != nil {
			flog.Error().Err(err).Str("branch", b.Name).Msg("failed to construct tentacle")
			continue
		}
		f.units[b.Name] = u
		f.order = append(f.order, b.Name)
	}
	f.knownBranches = append([]string(nil), f.order...)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	for _, u := range snapshot {
		if err := u.supervisor.EnsureWorkspace(ctx); err != nil {
			flog.Warn().Err(err).Str("branch", u.supervisor.Tentacle.Name).Msg("failed to prepare workspace")
			continue
		}
		if err := u.supervisor.Build(ctx); err != nil {
			flog.Warn().Err(err).Str("branch", u.supervisor.Tentacle.Name).Msg("initial build failed")
			continue
		}
		if err := u.supervisor.Start(ctx); err != nil {
			flog.Warn().Err(err).Str("branch", u.supervisor.Tentacle.Name).Msg("initial start failed")
		}
	}

	f.logSystem("info", fmt.Sprintf("fleet initialized with %d tentacles", len(snapshot)))
	metrics.TentaclesTotal.Set(float64(len(snapshot)))
	return nil
}

func (f *Fleet) filterBranches(branches []hosting.Branch) []hosting.Branch {
	if len(f.cfg.FilterBranches) == 0 {
		return branches
	}

	wanted := make(map[string]bool, len(f.cfg.FilterBranches))
	for _, b := range f.cfg.FilterBranches {
		wanted[b] = true
	}

	var out []hosting.Branch
	for _, b := range branches {
		isListed := wanted[b.Name]
		include := (f.cfg.FilterMode == config.FilterInclude && isListed) ||
			(f.cfg.FilterMode == config.FilterExclude && !isListed)
		if include {
			out = append(out, b)
		}
	}
	return out
}

// reconcileLocalDirectories deletes workspace directories whose name
// doesn't match any surviving branch. Best-effort: individual
// failures are logged and ignored. This is the only garbage-collection
// pass; it does not re-run periodically.
func (f *Fleet) reconcileLocalDirectories(surviving []hosting.Branch) {
	if f.cfg.ClearRedundantLocalBranches != nil && !*f.cfg.ClearRedundantLocalBranches {
		return
	}

	flog := log.WithComponent("fleet")

	entries, err := os.ReadDir(f.cfg.BranchesDir)
	if err != nil {
		return // no branches dir yet; nothing to reconcile
	}

	want := make(map[string]bool, len(surviving))
	for _, b := range surviving {
		want[b.Name] = true
	}

	for _, entry := range entries {
		if !entry.IsDir() || want[entry.Name()] {
			continue
		}
		dir := filepath.Join(f.cfg.BranchesDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			flog.Warn().Err(err).Str("dir", dir).Msg("failed to remove redundant local branch directory")
		}
	}
}

func (f *Fleet) newUnit(branch, remoteSha string) (*unit, error) {
	buildList, err := f.cfg.Commands.BuildList()
	if err != nil {
		return nil, err
	}

	t, err := tentacle.New(branch, filepath.Join(f.cfg.BranchesDir, branch), "", tentacle.Commands{
		Build: buildList,
		Start: f.cfg.Commands.Start,
	})
	if err != nil {
		return nil, err
	}
	t.RemoteSha = remoteSha

	ws := workspace.New(gogit.New(), f.cfg.BranchesDir, f.host.CloneURL(), f.cfg.GithubToken, branch, t.IsLive)

	observer := &brokerObserver{broker: f.broker}
	sup := tentacle.NewSupervisor(t, ws, observer)

	return &unit{supervisor: sup, workspace: ws}, nil
}

// HandlePush handles one webhook delivery. ref's final '/'-segment is
// taken as the branch name (this misparses multi-segment branch names
// — preserved from the source behavior, see DESIGN.md). A deletion ref
// (after == 40 zero SHA) tears the tentacle down; an existing branch
// is updated in place; an unknown branch is created fresh.
func (f *Fleet) HandlePush(ctx context.Context, ref, after string) error {
	branch := lastSegment(ref)
	flog := log.WithBranch(branch)

	if after == deletedRef {
		flog.Info().Msg("branch deleted upstream, tearing down tentacle")
		return f.destroyUnit(branch)
	}

	f.mu.RLock()
	u, exists := f.units[branch]
	f.mu.RUnlock()

	if exists {
		flog.Info().Msg("branch updated, reconciling tentacle")
		return u.supervisor.Update(ctx, false)
	}

	flog.Info().Msg("new branch observed, creating tentacle")
	newUnit, err := f.newUnit(branch, after)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.units[branch] = newUnit
	f.order = append(f.order, branch)
	f.knownBranches = append([]string(nil), f.order...)
	f.mu.Unlock()
	metrics.TentaclesTotal.Set(float64(f.Count()))

	if err := newUnit.supervisor.EnsureWorkspace(ctx); err != nil {
		return err
	}
	if err := newUnit.supervisor.Build(ctx); err != nil {
		return err
	}
	return newUnit.supervisor.Start(ctx)
}

func (f *Fleet) destroyUnit(branch string) error {
	f.mu.Lock()
	u, exists := f.units[branch]
	if exists {
		delete(f.units, branch)
		f.order = removeFromOrder(f.order, branch)
		f.knownBranches = append([]string(nil), f.order...)
	}
	f.mu.Unlock()

	if !exists {
		return nil // race with a concurrent StopAll/destroy is a no-op, not an error
	}

	if err := u.supervisor.Stop(); err != nil {
		log.WithBranch(branch).Warn().Err(err).Msg("stop failed during teardown")
	}
	err := u.supervisor.Workspace.Destroy()
	metrics.TentaclesTotal.Set(float64(f.Count()))
	return err
}

// StopAll stops every tentacle. Used by the signal handler on
// SIGINT/SIGTERM. A failure stopping one tentacle never prevents
// stopping the others.
func (f *Fleet) StopAll() {
	f.mu.RLock()
	units := f.snapshotLocked()
	f.mu.RUnlock()

	for _, u := range units {
		if err := u.supervisor.Stop(); err != nil {
			log.WithBranch(u.supervisor.Tentacle.Name).Warn().Err(err).Msg("stop failed during shutdown")
		}
	}
}

// Find performs a linear (map) lookup by exact branch name. Callers
// must tolerate a nil return: a webhook worker may race with a
// concurrent StopAll/destroy.
func (f *Fleet) Find(name string) *tentacle.Supervisor {
	f.mu.RLock()
	defer f.mu.RUnlock()

	u, ok := f.units[name]
	if !ok {
		return nil
	}
	return u.supervisor
}

// KnownBranches returns the fleet's branch names, in insertion order, as
// of the last Init or webhook create/delete, without a fresh hosting-API
// round trip.
func (f *Fleet) KnownBranches() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.knownBranches))
	copy(out, f.knownBranches)
	return out
}

// Count returns the current number of fleet members.
func (f *Fleet) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.units)
}

// Snapshot returns every tentacle's dashboard view in insertion order.
func (f *Fleet) Snapshot(urlFor func(branch string) string) []tentacle.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]tentacle.Snapshot, 0, len(f.order))
	for _, name := range f.order {
		u, ok := f.units[name]
		if !ok {
			continue
		}
		out = append(out, u.supervisor.Tentacle.ToSnapshot(urlFor(name)))
	}
	return out
}

// SystemLog returns the accumulated system log.
func (f *Fleet) SystemLog() []SystemLogEntry {
	f.systemMu.Lock()
	defer f.systemMu.Unlock()
	out := make([]SystemLogEntry, len(f.systemLog))
	copy(out, f.systemLog)
	return out
}

func (f *Fleet) logSystem(level, message string) {
	entry := SystemLogEntry{Level: level, Message: message, Timestamp: time.Now()}

	f.systemMu.Lock()
	f.systemLog = append(f.systemLog, entry)
	f.systemMu.Unlock()

	f.broker.Publish(&events.Event{Type: events.EventSystemLogsUpdate, Level: level, Payload: entry})
}

// snapshotLocked must be called with f.mu held (read or write).
func (f *Fleet) snapshotLocked() []*unit {
	out := make([]*unit, 0, len(f.order))
	for _, name := range f.order {
		if u, ok := f.units[name]; ok {
			out = append(out, u)
		}
	}
	return out
}

func removeFromOrder(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// lastSegment returns the final '/'-delimited segment of ref. This
// deliberately does not special-case "refs/heads/<branch>" beyond
// taking the final segment, reproducing the source's misparse of
// multi-segment branch names (see DESIGN.md Open Questions).
func lastSegment(ref string) string {
	idx := strings.LastIndexByte(ref, '/')
	if idx < 0 {
		return ref
	}
	return ref[idx+1:]
}

// brokerObserver adapts an events.Broker to tentacle.Observer.
type brokerObserver struct {
	broker *events.Broker
}

func (o *brokerObserver) OnStatus(t *tentacle.Tentacle) {
	o.broker.Publish(&events.Event{
		Type:   events.EventStatusUpdate,
		Branch: t.Name,
		Payload: map[string]interface{}{
			"name":             t.Name,
			"is_build_success": t.BuildStatus(),
			"is_start_success": t.StartStatus(),
		},
	})
}

func (o *brokerObserver) OnLog(branch, kind, line string) {
	o.broker.Publish(&events.Event{
		Type:   events.EventLogsUpdate,
		Branch: branch,
		Payload: map[string]string{
			"kind": kind,
			"line": line,
		},
	})
}
