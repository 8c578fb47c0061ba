package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"rulebase/internal/domain"
	"rulebase/internal/httputil"
)

// Recovery turns a handler panic into a logged 500 instead of a dropped
// connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				httputil.RespondError(w, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
