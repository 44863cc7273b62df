/*
Package tentacle implements the Tentacle Supervisor: the per-branch
state machine that drives one Tentacle's workspace, build pipeline,
and started service process.

# State machine

	NEW ──ensure──▶ READY ──build──▶ BUILT ──start──▶ RUNNING
	                   ▲                 │                │
	                   └────── stop ─────┴──── stop ──────┘
	                   │
	                   └── update(clean) ── destroy ── back to NEW

stop is reachable from every state and is always safe to call. BUILT
with a failed build status is terminal until the next Update.

# Serialization

A Supervisor serializes its own stop → build → start sequence with a
private mutex; these three never overlap for the same tentacle. That
mutex stays held while Observer callbacks run; the Tentacle's own
field lock is released before each callback.

# Broadcast

Status and log broadcasts go through the Observer interface
(observer.go) rather than a direct reference to the event bus, so this
package has no dependency on pkg/events or pkg/api. pkg/fleet wires a
real observer backed by an events.Broker.
*/
package tentacle
