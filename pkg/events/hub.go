package events

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kgaudium/tentaclepreview/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Dashboard clients are same-origin through the reverse proxy; no
	// cross-site embedding of this endpoint is expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is an inbound message from a dashboard websocket client.
type clientMessage struct {
	Type     string `json:"type"`
	Tentacle string `json:"tentacle,omitempty"`
	LogType  string `json:"log_type,omitempty"`
}

// StatusProvider supplies the current fleet snapshot and a single
// tentacle's logs on demand, so the Hub can answer request_status and
// request_logs without importing the fleet package directly.
type StatusProvider interface {
	Snapshot() interface{}
	Logs(branch, kind string) (interface{}, bool)
}

// Hub bridges the Broker to websocket-connected dashboard clients: one
// subscriber per connection, one goroutine reading broker events out to
// the socket and one reading client messages in.
type Hub struct {
	broker   *Broker
	provider StatusProvider
}

// NewHub wires a websocket hub to a broker and a status provider used to
// answer request_status/request_logs client messages.
func NewHub(broker *Broker, provider StatusProvider) *Hub {
	return &Hub{broker: broker, provider: provider}
}

// ServeHTTP upgrades the request to a websocket connection and services
// it until the client disconnects or a write fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hlog := log.WithComponent("events.hub")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe()
	defer h.broker.Unsubscribe(sub)

	var writeMu sync.Mutex
	writeMu.Lock()
	err = conn.WriteJSON(&Event{Type: "connection_status", Payload: map[string]string{"status": "connected"}})
	writeMu.Unlock()
	if err != nil {
		hlog.Debug().Err(err).Msg("initial connection_status write failed")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sub {
			writeMu.Lock()
			err := conn.WriteJSON(event)
			writeMu.Unlock()
			if err != nil {
				hlog.Debug().Err(err).Msg("websocket write failed, closing")
				return
			}
		}
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.handleClientMessage(conn, &writeMu, &msg, hlog)
	}

	conn.Close()
	<-done
}

func (h *Hub) handleClientMessage(conn *websocket.Conn, writeMu *sync.Mutex, msg *clientMessage, hlog zerolog.Logger) {
	switch msg.Type {
	case "connect", "disconnect":
		// No per-connection state beyond the subscription itself.
	case "request_status":
		if h.provider == nil {
			return
		}
		writeMu.Lock()
		_ = conn.WriteJSON(&Event{Type: EventStatusUpdate, Payload: h.provider.Snapshot()})
		writeMu.Unlock()
	case "request_logs":
		if h.provider == nil {
			return
		}
		payload, ok := h.provider.Logs(msg.Tentacle, msg.LogType)
		if !ok {
			return
		}
		writeMu.Lock()
		_ = conn.WriteJSON(&Event{Type: EventLogsUpdate, Branch: msg.Tentacle, Payload: payload})
		writeMu.Unlock()
	default:
		hlog.Debug().Str("type", msg.Type).Msg("unrecognized websocket client message")
	}
}
