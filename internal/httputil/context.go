package httputil

import (
	"context"
	"net/http"
)

// unexported key type so no other package can collide with our context values
type contextKey int

const userIDKey contextKey = iota

// WithUserID returns a request whose context carries the authenticated
// user id. Set by the auth middleware once the token checks out.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user id, or "" on an
// unauthenticated request.
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
