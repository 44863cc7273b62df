/*
Package events implements the tentacle supervisor's event bus: an
in-memory, non-blocking pub/sub broker plus a websocket Hub that relays
events to connected dashboard clients.

# Architecture

	Publisher → Broker.Publish → event channel (buffer 100)
	                                    ↓
	                             broadcast loop
	                                    ↓
	                  subscriber channels (buffer 50 each)
	                                    ↓
	                         Hub (one per websocket conn)
	                                    ↓
	                          dashboard client

# Event Types

  - EventStatusUpdate ("status_update"): a tentacle's build or start
    status changed.
  - EventLogsUpdate ("logs_update"): a full or streaming log fragment
    for one tentacle.
  - EventSystemLogsUpdate ("system_logs_update"): a new fleet-wide
    system log entry.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			// handle event
		}
	}()

	broker.Publish(&events.Event{
		Type:   events.EventStatusUpdate,
		Branch: "feat/login",
		Payload: statusPayload,
	})

# Hub

Hub wraps a Broker behind an http.Handler: each accepted websocket
connection gets its own Broker subscription, a goroutine relaying
broker events out as JSON frames, and a reader goroutine handling
inbound client messages (connect, disconnect, request_status,
request_logs). Hub answers request_status/request_logs through the
narrow StatusProvider interface rather than importing the fleet
package directly, keeping the dependency direction leaf-to-root.

# Design notes

Publish never blocks the caller: a full event queue or a full
subscriber buffer drops the event rather than applying back-pressure.
This matches the supervisor's requirement that a failed or slow
broadcast never delays the operation that triggered it. Subscriber
loss is silent by design — the dashboard is a best-effort view, not a
transaction log.

SetLevelFilter restricts which EventSystemLogsUpdate levels reach
subscribers at all, mirroring the enabled_log_levels config key: a
nil filter (the zero value) allows every level through.
*/
package events
