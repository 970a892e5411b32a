package http

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"kharcha/internal/core"
	"kharcha/internal/identity"
	"kharcha/internal/log"
)

// WebhookSecretHeader carries the secret shared with the identity provider
// relay.
const WebhookSecretHeader = "X-Webhook-Secret"

// handleIdentityWebhook applies user lifecycle events from the identity
// provider.
func (s *Server) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentIdentity)

	if !s.validWebhookSecret(r.Header.Get(WebhookSecretHeader)) {
		logger.WarnContext(r.Context(), "Rejected identity webhook",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		s.writeError(w, r, core.ErrUnauthorized)
		return
	}

	// Provider payloads carry many more fields than the ones mirrored here.
	var evt identity.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&evt); err != nil {
		s.writeError(w, r, errMalformedBody)
		return
	}
	if err := s.syncer.Apply(r.Context(), evt); err != nil {
		s.writeError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Identity event applied", log.FieldEventType, evt.Type)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) validWebhookSecret(got string) bool {
	if s.webhookSecret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) == 1
}
