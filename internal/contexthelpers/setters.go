package contexthelpers

import (
	"context"
	"net/http"
)

// WithAuthenticatedUser scopes ctx to userID. Service calls outside HTTP requests, such as the demo seeder, use
// it directly.
func WithAuthenticatedUser(ctx context.Context, userID int, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	ctx = context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
	return context.WithValue(ctx, IsAdminContextKey, isAdmin)
}

func AuthenticateContext(r *http.Request, userID int, isAdmin bool) *http.Request {
	return r.WithContext(WithAuthenticatedUser(r.Context(), userID, isAdmin))
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}

