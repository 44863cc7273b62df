/*
Package ingress implements the Reverse Proxy: HTTP request routing
into supervised tentacle processes by branch name, with an HTML
rewrite pass so a service mounted at /tentacle/<branch>/ behaves as if
it were served from the origin.

This keeps the teacher's httputil.NewSingleHostReverseProxy-based
forwarding (see proxy.go) but replaces its service/load-balancer
routing with a direct branch → (host, port) lookup against the Fleet
Controller (pkg/fleet), and drops the TLS termination, ACME/Let's
Encrypt integration, host/path ingress rules, and rate-limiting/access-
control middleware the teacher built for multi-tenant cluster ingress
— none of which this single-host preview proxy needs.

# Request flow

 1. Resolve branch + remaining path from the request's
    /tentacle/<branch>/<path> prefix, or fall back to parsing the
    Referer header the same way.
 2. Resolve the branch against the Resolver (pkg/fleet.Fleet); 404 if
    unknown.
 3. Build a reverse proxy targeting the tentacle's assigned
    127.0.0.1:<port>, forwarding method, body, cookies and headers
    minus Host, with redirect-following disabled (the RoundTripper
    layer never follows redirects; only http.Client does).
 4. If the response is text/html, rewrite it: inject <base href> and
    rewrite absolute-path URLs in src=/href=/action=/url(...).
 5. Strip headers that would otherwise fight the rewrite or block
    framing: Content-Encoding, Content-Length, Transfer-Encoding,
    Connection, Content-Security-Policy, X-Frame-Options, and the
    three Cross-Origin-*-Policy headers.

The rewrite runs inside a custom http.RoundTripper (rewritingTransport
in proxy.go) rather than ReverseProxy's ModifyResponse hook, since the
RoundTrip interception point is where the buffered body is still
mutable before ReverseProxy starts streaming it downstream.
*/
package ingress
