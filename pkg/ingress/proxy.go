package ingress

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/kgaudium/tentaclepreview/pkg/log"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
	"github.com/kgaudium/tentaclepreview/pkg/tentacle"
)

// strippedHeaders are dropped from every proxied response: encoding and
// length headers because the HTML rewrite pass may have changed the
// body length, and the isolation headers because they'd otherwise
// block the proxied page from being framed/fetched by the dashboard.
var strippedHeaders = []string{
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Content-Security-Policy",
	"X-Frame-Options",
	"Cross-Origin-Opener-Policy",
	"Cross-Origin-Embedder-Policy",
	"Cross-Origin-Resource-Policy",
}

// Resolver looks up the Supervisor backing a branch. pkg/fleet.Fleet
// satisfies this directly.
type Resolver interface {
	Find(branch string) *tentacle.Supervisor
}

// Proxy is the reverse proxy that routes /tentacle/<branch>/<path>
// requests into the branch's supervised process, rewriting HTML
// responses so the mounted service behaves as if served from the
// origin.
type Proxy struct {
	resolver Resolver
}

// New constructs a Proxy backed by resolver.
func New(resolver Resolver) *Proxy {
	return &Proxy{resolver: resolver}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	branch, rest, ok := resolveBranch(r.URL.Path)
	if !ok {
		branch, ok = resolveBranchFromReferer(r.Header.Get("Referer"))
		if !ok {
			http.Error(w, fmt.Sprintf("Unknown path: %s", r.URL.Path), http.StatusNotFound)
			return
		}
		rest = strings.TrimPrefix(r.URL.Path, "/")
	}

	sup := p.resolver.Find(branch)
	if sup == nil {
		http.Error(w, fmt.Sprintf("Tentacle for branch '%s' not found", branch), http.StatusNotFound)
		return
	}

	target := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", sup.Tentacle.Host, sup.Tentacle.Port())}

	timer := metrics.NewTimer()
	rp := httputil.NewSingleHostReverseProxy(target)
	originalDirector := rp.Director
	rp.Director = func(req *http.Request) {
		req.URL.Path = "/" + rest
		req.URL.RawPath = ""
		originalDirector(req)
		req.Host = target.Host
	}
	rp.Transport = &rewritingTransport{branch: branch, base: http.DefaultTransport}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.WithBranch(branch).Warn().Err(err).Msg("proxy error")
		metrics.ProxyRequestsTotal.WithLabelValues(branch, "error").Inc()
		http.Error(w, "Bad gateway", http.StatusBadGateway)
	}

	rp.ServeHTTP(w, r)

	metrics.ProxyRequestsTotal.WithLabelValues(branch, "ok").Inc()
	timer.ObserveDurationVec(metrics.ProxyRequestDuration, branch)
}

// rewritingTransport wraps an http.RoundTripper, rewriting text/html
// response bodies with rewriteHTML and stripping strippedHeaders from
// every response before ReverseProxy copies it downstream. This is the
// same RoundTrip interception point httputil.ReverseProxy exposes via
// its Transport field; ModifyResponse would run too late to change
// Content-Length safely once the proxy starts streaming.
type rewritingTransport struct {
	branch string
	base   http.RoundTripper
}

func (t *rewritingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			rewritten := rewriteHTML(string(raw), t.branch)
			resp.Body = io.NopCloser(strings.NewReader(rewritten))
			resp.ContentLength = -1
		} else {
			resp.Body = io.NopCloser(strings.NewReader(string(raw)))
		}
	}

	for _, h := range strippedHeaders {
		resp.Header.Del(h)
	}

	return resp, nil
}
