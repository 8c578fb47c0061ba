package handler

import (
	"errors"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/httputil"
)

// handleError converts domain errors to envelope responses. Typed domain
// errors carry their own status and code; sentinels cover errors wrapped
// with %w; anything else is a 500.
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Code(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, domain.CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, domain.CodeForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, domain.CodeConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
	}
}

// requireUser extracts the authenticated user id, responding 401 when the
// auth middleware did not run.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// pathID extracts a required path parameter, responding 400 when missing.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, name+" is required")
		return "", false
	}
	return id, true
}
