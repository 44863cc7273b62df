package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kgaudium/tentaclepreview/pkg/log"
	"github.com/kgaudium/tentaclepreview/pkg/metrics"
)

// webhookPayload covers the push-event fields the Fleet Controller
// needs plus GitHub's ping-event marker. Zen is a pointer so its mere
// presence in the JSON body (even as an empty string) is detectable.
type webhookPayload struct {
	Zen   *string `json:"zen"`
	Ref   string  `json:"ref"`
	After string  `json:"after"`
}

// handleWebhook accepts a hosting-provider webhook delivery. A ping
// event (carrying "zen") is acknowledged inline; a push event is
// handed to the Fleet Controller on its own goroutine and acknowledged
// immediately with update_started, per the no-blocking contract in
// §5 of the source specification.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	if payload.Zen != nil {
		metrics.WebhookEventsTotal.WithLabelValues("ping").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ping"})
		return
	}

	ref, after := payload.Ref, payload.After
	go func() {
		if err := s.fleet.HandlePush(context.Background(), ref, after); err != nil {
			log.WithComponent("api").Error().Err(err).Str("ref", ref).Msg("webhook push handling failed")
		}
	}()

	metrics.WebhookEventsTotal.WithLabelValues("update_started").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "update_started"})
}
