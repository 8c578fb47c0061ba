package handler

import (
	"log/slog"
	"net/http"

	"rulebase/internal/domain"
	"rulebase/internal/domain/services"
	"rulebase/internal/httputil"
)

// AccountHandler handles account HTTP requests
type AccountHandler struct {
	accountService services.AccountService
	treeService    services.TreeService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService services.AccountService, treeService services.TreeService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		treeService:    treeService,
		logger:         logger,
	}
}

// CreateAccount creates an account with the caller as owner
// POST /api/accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.CreateAccountRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	req.UserID = userID

	account, err := h.accountService.CreateAccount(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, account)
}

// ListAccounts lists the caller's accounts
// GET /api/accounts
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, accounts)
}

// GetAccount retrieves an account
// GET /api/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, account)
}

// UpdateAccount updates name/slug/plan
// PATCH /api/accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req services.UpdateAccountRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	account, err := h.accountService.UpdateAccount(r.Context(), userID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, account)
}

// DeleteAccount deletes an account
// DELETE /api/accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAccountTree returns the account-scoped folder/rule tree
// GET /api/accounts/{id}/tree
func (h *AccountHandler) GetAccountTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tree, err := h.treeService.AccountTree(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// HealthCheck reports service liveness
// GET /health
func (h *AccountHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
