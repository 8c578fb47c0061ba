package models

import (
	"time"
)

// InheritanceMode controls which account folders propagate into a project.
type InheritanceMode string

const (
	// InheritanceFull auto-syncs every account root folder into the project.
	InheritanceFull InheritanceMode = "full"
	// InheritancePartial inherits only folders that were explicitly synced.
	InheritancePartial InheritanceMode = "partial"
	// InheritanceNone inherits nothing; entering it detaches synced folders.
	InheritanceNone InheritanceMode = "none"
)

// Valid reports whether the mode is one of the known values.
func (m InheritanceMode) Valid() bool {
	switch m {
	case InheritanceFull, InheritancePartial, InheritanceNone:
		return true
	}
	return false
}

// Project is a workspace inside an account with its own inheritance policy.
type Project struct {
	ID                 string          `json:"id" db:"id"`
	AccountID          string          `json:"account_id" db:"account_id"`
	Name               string          `json:"name" db:"name"`
	Slug               string          `json:"slug" db:"slug"`
	InheritanceMode    InheritanceMode `json:"inheritance_mode" db:"inheritance_mode"`
	InheritPermissions bool            `json:"inherit_permissions" db:"inherit_permissions"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}
