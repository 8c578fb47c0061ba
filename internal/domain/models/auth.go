package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims are the JWT claims the server cares about. The user id is the
// standard subject claim; Role gates anonymous tokens out.
type AuthClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}
