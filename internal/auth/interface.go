package auth

import "rulebase/internal/domain/models"

// JWTVerifier validates bearer tokens. The middleware depends only on this
// interface, so tests can substitute the JWKS-backed implementation.
type JWTVerifier interface {
	// VerifyToken parses and validates a token string, returning its
	// claims or an error for anything invalid, expired or mis-signed.
	VerifyToken(tokenString string) (*models.AuthClaims, error)

	// Close releases verifier resources, such as the JWKS refresh loop.
	Close() error
}
