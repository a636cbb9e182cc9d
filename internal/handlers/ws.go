package handlers

import (
	"net/http"
	"strings"

	"taxledger/internal/auth"
	"taxledger/internal/websocket"
)

// WSLedger streams ledger_changed events. Browsers cannot set headers on
// the upgrade request, so the token may come as ?token=. A user holding
// WSMaxSessions open sockets is refused until one closes.
func (h *Handler) WSLedger(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		header := r.Header.Get("Authorization")
		if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if limit := h.cfg.WSMaxSessions; limit > 0 && h.hub.Connections(claims.UserID) >= limit {
		respondError(w, http.StatusTooManyRequests, "too many open sessions")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, claims.UserID)
}
