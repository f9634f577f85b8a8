package websocket

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rivergate/avalon-core/internal/wsauth"
)

// WSHandler upgrades and authenticates room WebSocket connections,
// then hands each one to a Dispatcher via NewClient.
type WSHandler struct {
	hub        *Hub
	dispatcher Dispatcher
	bind       func(sessionID string, userID int64, username, displayName, roomID string)
	verifier   *wsauth.Verifier
}

// NewWSHandler returns a WSHandler wired to hub and dispatcher, using
// verifier to authenticate the bearer token supplied on upgrade. bind
// registers a session (room membership, join broadcasts) before its
// read/write pumps start.
func NewWSHandler(hub *Hub, dispatcher Dispatcher, bind func(sessionID string, userID int64, username, displayName, roomID string), verifier *wsauth.Verifier) *WSHandler {
	return &WSHandler{hub: hub, dispatcher: dispatcher, bind: bind, verifier: verifier}
}

func bearerTokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	const prefix = "Bearer "
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, prefix) {
		return strings.TrimSpace(v[len(prefix):])
	}
	return ""
}

// HandleRoomWebSocket handles GET /ws/rooms/{code}. Auth is verified
// before upgrading, matching spec §9: a socket is never opened for an
// unauthenticated caller.
func (h *WSHandler) HandleRoomWebSocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	token := bearerTokenFrom(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if claims.RoomID != "" && claims.RoomID != code {
		http.Error(w, "room does not match token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sessionID := uuid.NewString()
	if h.bind != nil {
		h.bind(sessionID, claims.UserID, claims.Username, claims.DisplayName, code)
	}
	NewClient(h.hub, conn, h.dispatcher, sessionID, claims.UserID, claims.Username, claims.DisplayName, code)
}
