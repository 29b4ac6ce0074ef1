package jwt

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims carried by admin session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}
