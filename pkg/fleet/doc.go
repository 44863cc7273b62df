/*
Package fleet implements the Fleet Controller: the owning coordinator
holding the map of branch name to Supervisor, the hosting-API client,
and the event broker, grounded on the role pkg/manager plays in the
teacher (a coordinator holding a map of child units plus a broker plus
a proxy) minus the raft/bbolt/containerd/mTLS clustering machinery
that backed Warren's multi-host distribution — dropped per spec's
explicit non-goals of persistent state and multi-host distribution
(see DESIGN.md).

Init uses the configuration passed to New, enumerates branches from the hosting API,
applies the include/exclude filter, reconciles local workspace
directories against the surviving branch set, then builds and starts
a Supervisor per branch in insertion order.

HandlePush handles one webhook delivery: a deletion ref tears the
branch down, an update reconciles an existing tentacle, and an unknown
branch is created fresh. Each delivery is handled on its own goroutine
so the HTTP handler returns update_started immediately.

The fleet map is guarded by a sync.RWMutex: writers (Init, HandlePush)
take the exclusive lock; readers (Find, proxy lookups, the websocket
hub's snapshot, and StopAll while it copies the member list) take the
shared lock. Iteration for broadcast snapshots the map into a slice
before releasing the lock.
*/
package fleet
