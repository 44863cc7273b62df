package ingress

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgaudium/tentaclepreview/pkg/tentacle"
)

type fakeResolver struct {
	supervisors map[string]*tentacle.Supervisor
}

func (r *fakeResolver) Find(branch string) *tentacle.Supervisor {
	return r.supervisors[branch]
}

// backendOn constructs a Supervisor-backed tentacle whose assigned
// port is rebound to serve handler, for exercising the proxy against
// a real HTTP backend.
func backendOn(t *testing.T, branch string, handler http.Handler) *tentacle.Supervisor {
	t.Helper()

	tnt, err := tentacle.New(branch, t.TempDir(), "127.0.0.1", tentacle.Commands{})
	require.NoError(t, err)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", tnt.Port()))
	require.NoError(t, err)

	server := httptest.NewUnstartedServer(handler)
	server.Listener.Close()
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)

	return tentacle.NewSupervisor(tnt, nil, nil)
}

func TestProxy_RoutesToBackendAndRewritesHTML(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head></head><body><a href='/a.css'>link</a></body></html>")
	})

	sup := backendOn(t, "main", backend)
	p := New(&fakeResolver{supervisors: map[string]*tentacle.Supervisor{"main": sup}})

	req := httptest.NewRequest(http.MethodGet, "/tentacle/main/page", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<base href='/tentacle/main/'>")
	require.Contains(t, body, "href='/tentacle/main/a.css'")
	require.Empty(t, rec.Header().Get("Content-Length"))
}

func TestProxy_UnknownBranch404(t *testing.T) {
	p := New(&fakeResolver{supervisors: map[string]*tentacle.Supervisor{}})

	req := httptest.NewRequest(http.MethodGet, "/tentacle/ghost/page", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Tentacle for branch 'ghost' not found")
}

func TestProxy_FallbackViaReferer(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	sup := backendOn(t, "main", backend)
	p := New(&fakeResolver{supervisors: map[string]*tentacle.Supervisor{"main": sup}})

	req := httptest.NewRequest(http.MethodGet, "/app.css", nil)
	req.Header.Set("Referer", "http://localhost/tentacle/main/index.html")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestProxy_UnknownPathNoReferer404(t *testing.T) {
	p := New(&fakeResolver{supervisors: map[string]*tentacle.Supervisor{}})

	req := httptest.NewRequest(http.MethodGet, "/mystery.js", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Unknown path: /mystery.js")
}

func TestProxy_StripsSecurityHeaders(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Write([]byte("ok"))
	})
	sup := backendOn(t, "main", backend)
	p := New(&fakeResolver{supervisors: map[string]*tentacle.Supervisor{"main": sup}})

	req := httptest.NewRequest(http.MethodGet, "/tentacle/main/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get("X-Frame-Options"))
	require.Empty(t, rec.Header().Get("Content-Security-Policy"))
}
