package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced in the response envelope. Clients branch on
// these, so they must never change once shipped.
const (
	CodeNoAccountContext = "NO_ACCOUNT_CONTEXT"
	CodeValidation       = "VALIDATION_ERROR"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeNotFound         = "NOT_FOUND"
	CodeLimitExceeded    = "LIMIT_EXCEEDED"
	CodeCycle            = "CYCLE"
	CodeReadOnly         = "READ_ONLY"
	CodeReadOnlyTarget   = "READ_ONLY_TARGET"
	CodeAlreadySynced    = "ALREADY_SYNCED"
	CodeLastOwner        = "LAST_OWNER"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL"
)

// HTTPError defines errors that carry their own HTTP status and envelope code.
// Handlers map any error implementing this interface without a type switch.
type HTTPError interface {
	error
	StatusCode() int
	Code() string
}

// Domain error types implementing HTTPError
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// CycleError indicates a reparent that would make a folder its own ancestor
	CycleError struct {
		FolderID string
		TargetID string
	}

	// ReadOnlyError indicates a direct content mutation of a synced node
	ReadOnlyError struct {
		ResourceType string
		ResourceID   string
	}

	// ReadOnlyTargetError indicates a move into a synced (read-only) folder
	ReadOnlyTargetError struct {
		TargetID string
	}

	// AlreadySyncedError indicates a sync for an account-folder/project pair
	// that already has a synced copy
	AlreadySyncedError struct {
		AccountFolderID string
		ProjectID       string
		ExistingID      string
	}

	// LastOwnerError indicates removing or demoting an account's only owner
	LastOwnerError struct {
		AccountID string
		UserID    string
	}

	// LimitExceededError indicates a plan limit was hit
	LimitExceededError struct {
		Resource string
		Limit    int
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *CycleError) Error() string {
	return fmt.Sprintf("moving folder %s under %s would create a cycle", e.FolderID, e.TargetID)
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s %s is synced and read-only; detach it before editing", e.ResourceType, e.ResourceID)
}

func (e *ReadOnlyTargetError) Error() string {
	return fmt.Sprintf("folder %s is synced and cannot accept new children", e.TargetID)
}

func (e *AlreadySyncedError) Error() string {
	return fmt.Sprintf("account folder %s is already synced into project %s", e.AccountFolderID, e.ProjectID)
}

func (e *LastOwnerError) Error() string {
	return fmt.Sprintf("user %s is the last owner of account %s", e.UserID, e.AccountID)
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("plan limit reached: at most %d %s allowed", e.Limit, e.Resource)
}

func (e *NotFoundError) StatusCode() int       { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int     { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int   { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int      { return http.StatusForbidden }
func (e *CycleError) StatusCode() int          { return http.StatusConflict }
func (e *ReadOnlyError) StatusCode() int       { return http.StatusConflict }
func (e *ReadOnlyTargetError) StatusCode() int { return http.StatusConflict }
func (e *AlreadySyncedError) StatusCode() int  { return http.StatusConflict }
func (e *LastOwnerError) StatusCode() int      { return http.StatusConflict }
func (e *LimitExceededError) StatusCode() int  { return http.StatusForbidden }

func (e *NotFoundError) Code() string       { return CodeNotFound }
func (e *ValidationError) Code() string     { return CodeValidation }
func (e *UnauthorizedError) Code() string   { return CodeUnauthorized }
func (e *ForbiddenError) Code() string      { return CodeForbidden }
func (e *CycleError) Code() string          { return CodeCycle }
func (e *ReadOnlyError) Code() string       { return CodeReadOnly }
func (e *ReadOnlyTargetError) Code() string { return CodeReadOnlyTarget }
func (e *AlreadySyncedError) Code() string  { return CodeAlreadySynced }
func (e *LastOwnerError) Code() string      { return CodeLastOwner }
func (e *LimitExceededError) Code() string  { return CodeLimitExceeded }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Is allows errors.Is() matching of the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// ConflictError represents a resource conflict with details about the
// existing resource so handlers can return it to the client.
type ConflictError struct {
	Message      string
	ResourceType string
	ResourceID   string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

func (e *ConflictError) Code() string { return CodeConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
