/*
Package metrics provides Prometheus metrics collection and exposition for the
tentacle supervisor.

Metrics are registered at package init against the default Prometheus
registry and exposed via Handler() for scraping. Categories:

  - Fleet: tentacle count, build/start status breakdowns (the two
    status-breakdown gauges are registered but nothing in the module sets
    them, so they export no series)
  - Operations: build/start/stop counters and durations, reconciliation
  - API: request count by method and status, latency by method
  - Proxy: request count and latency by branch
  - Event bus: connected subscriber count, events published by type

Timer is a small helper for recording an operation's duration to a
histogram without manually computing time.Since at every call site.
*/
package metrics
