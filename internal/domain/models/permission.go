package models

import (
	"time"
)

// PermissionType is the access level lattice: none < read < write < admin.
// An explicit none grant is a hard deny, not an absence.
type PermissionType string

const (
	PermissionNone  PermissionType = "none"
	PermissionRead  PermissionType = "read"
	PermissionWrite PermissionType = "write"
	PermissionAdmin PermissionType = "admin"
)

// Valid reports whether the permission type is one of the known values.
func (p PermissionType) Valid() bool {
	switch p {
	case PermissionNone, PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// Rank orders permission types for max() comparison.
func (p PermissionType) Rank() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionWrite:
		return 2
	case PermissionAdmin:
		return 3
	default:
		return 0
	}
}

// MaxPermission returns the higher of two permission types.
func MaxPermission(a, b PermissionType) PermissionType {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// TargetType says whether a grant is for a single user or a group.
type TargetType string

const (
	TargetUser  TargetType = "user"
	TargetGroup TargetType = "group"
)

// ResourceType of a permission grant.
type ResourceType string

const (
	ResourceProject ResourceType = "project"
	ResourceFolder  ResourceType = "folder"
)

// Permission is a grant of an access level from a principal (user or group)
// onto one resource. InheritedFrom is set only on transiently materialized
// results produced by the resolver; such records are never persisted.
type Permission struct {
	ID             string         `json:"id" db:"id"`
	ResourceType   ResourceType   `json:"resource_type" db:"resource_type"`
	ResourceID     string         `json:"resource_id" db:"resource_id"`
	TargetType     TargetType     `json:"target_type" db:"target_type"`
	TargetID       string         `json:"target_id" db:"target_id"`
	PermissionType PermissionType `json:"permission_type" db:"permission_type"`
	GrantedBy      string         `json:"granted_by" db:"granted_by"`
	GrantedAt      time.Time      `json:"granted_at" db:"granted_at"`
	InheritedFrom  *string        `json:"inherited_from,omitempty"` // ancestor resource id, materialized only
}

// EffectivePermission is the resolver's answer for one principal/resource
// pair. InheritedFrom names the ancestor whose grants decided the result.
type EffectivePermission struct {
	UserID         string         `json:"user_id"`
	ResourceType   ResourceType   `json:"resource_type"`
	ResourceID     string         `json:"resource_id"`
	PermissionType PermissionType `json:"permission_type"`
	InheritedFrom  *string        `json:"inherited_from,omitempty"`
}
