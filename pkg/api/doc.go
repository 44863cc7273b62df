/*
Package api implements the daemon's HTTP surface: the dashboard JSON
API, the webhook receiver, the websocket event stream, and health/
metrics endpoints, wired in front of the Fleet Controller (pkg/fleet)
and the Reverse Proxy (pkg/ingress).

Routing follows the teacher's plain net/http + http.ServeMux pattern
(pkg/api/health.go in the teacher registers /health, /ready, /metrics
the same way) — no router dependency is introduced; none of the
teacher or pack's repos carry a generic HTTP router the way they carry
a gRPC stack, and Go 1.22's pattern-based ServeMux covers this small,
fixed route set without one.

# Routes

	GET  /                                  dashboard page
	GET  /api/tentacles                     fleet snapshot
	GET  /api/tentacles/{name}/logs/{kind}  build or start log buffer
	GET  /api/tentacles/{name}/restart      restart (update clean=false)
	GET  /api/tentacles/{name}/restart/{clean}
	GET  /api/tentacles/system-logs         fleet-wide system log
	POST /webhook                           push event receiver
	GET  /ws                                websocket event stream
	GET  /health                            liveness
	GET  /metrics                           Prometheus exposition
	ANY  /tentacle/{branch}/{path...}        proxied into the tentacle
	ANY  /{path...}                          fallback, resolved via Referer

The dashboard, /api/tentacles* and /webhook handlers are wrapped with
the Prometheus APIRequestsTotal/APIRequestDuration instrumentation
pkg/metrics already defines; /ws, /health and /metrics are not wrapped.
The proxy route is instrumented separately with
ProxyRequestsTotal/ProxyRequestDuration inside pkg/ingress.
*/
package api
