package api

import (
	"net/http"

	"dcollector/logmanager"
)

const HandshakeHeader = "X-Agent-Handshake-Key"

// HandshakeValidator checks the handshake header value.
type HandshakeValidator interface {
	HandshakeKey() string
	ValidateHandshake(candidate string) bool
}

// HandshakeMiddleware rejects requests without a valid handshake header.
// When no key is configured every request is let through.
func HandshakeMiddleware(keys HandshakeValidator, logger *logmanager.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if keys == nil || keys.HandshakeKey() == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !keys.ValidateHandshake(r.Header.Get(HandshakeHeader)) {
			logger.Warnf("Unauthorized request from IP: %s", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		logger.Debugf("Received authorized request from IP: %s", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
