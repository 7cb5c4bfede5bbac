package webauthnhandler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/logging"
)

// AuthenticateMiddleware scopes the request context to the user stored in the session.
func (h *WebAuthnHandler) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		handle := h.sessionManager.GetBytes(ctx, string(userIDSessionKey))

		// User has not yet authenticated.
		if handle == nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, userRole, err := h.lookupUser(ctx, handle)
		switch {
		case errors.Is(err, errUnknownUser):
			// The account was deleted. Serve the request anonymously.
		case err != nil:
			h.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		default:
			r = contexthelpers.AuthenticateContext(r, userID, userRole == roleAdmin)
		}

		// Hash the token to avoid leaking it in logs.
		tokenHash := sha256.Sum256([]byte(h.sessionManager.Token(ctx)))
		ctx = logging.WithAttrs(r.Context(),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", userID),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
