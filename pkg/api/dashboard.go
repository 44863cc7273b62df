package api

import "net/http"

// dashboardPage is a minimal static client of the already-specified
// JSON/websocket API. It is not a design exercise in its own right —
// the browser-facing dashboard UI is out of scope; this page exists
// so /api/tentacles and /ws have a visible consumer.
const dashboardPage = `<!DOCTYPE html>
<html>
<head>
<title>tentacles</title>
<style>
body { font-family: monospace; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
.ok { color: green; } .fail { color: red; } .unknown { color: gray; }
</style>
</head>
<body>
<h1>tentacles</h1>
<table id="tentacles"><thead><tr><th>branch</th><th>build</th><th>start</th><th>url</th></tr></thead><tbody></tbody></table>
<h2>system log</h2>
<pre id="system-log"></pre>
<script>
function statusClass(v) { return v === null ? "unknown" : (v ? "ok" : "fail"); }

function render(snapshot) {
  const body = document.querySelector("#tentacles tbody");
  body.innerHTML = "";
  for (const t of (snapshot.tentacles || [])) {
    const row = document.createElement("tr");
    row.innerHTML = "<td>" + t.name + "</td>" +
      "<td class=\"" + statusClass(t.is_build_success) + "\">" + t.is_build_success + "</td>" +
      "<td class=\"" + statusClass(t.is_start_success) + "\">" + t.is_start_success + "</td>" +
      "<td><a href=\"" + t.url + "\">" + t.url + "</a></td>";
    body.appendChild(row);
  }
}

fetch("/api/tentacles").then(r => r.json()).then(render);

const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onopen = () => ws.send(JSON.stringify({type: "request_status"}));
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === "status_update") {
    fetch("/api/tentacles").then(r => r.json()).then(render);
  } else if (msg.type === "system_logs_update") {
    const pre = document.querySelector("#system-log");
    pre.textContent += JSON.stringify(msg.payload) + "\n";
  }
};
</script>
</body>
</html>
`

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardPage))
}
