// Package jwt issues and validates admin session tokens. Sessions use a
// sliding window: middleware re-issues a fresh token once a request arrives
// sufficiently far into a token's life, so active admins stay signed in and
// idle ones expire.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

type Service interface {
	// GenerateToken issues a session token for the user.
	GenerateToken(userID, email string) (string, error)

	// ValidateToken parses and verifies a session token.
	ValidateToken(tokenString string) (*SessionClaims, error)

	// ShouldRefresh reports whether claims are old enough that the caller
	// should re-issue a token to slide the session window.
	ShouldRefresh(claims *SessionClaims) bool
}

type service struct {
	secret       []byte
	ttl          time.Duration
	refreshAfter time.Duration
}

func NewService(secret string, ttl, refreshAfter time.Duration) Service {
	return &service{
		secret:       []byte(secret),
		ttl:          ttl,
		refreshAfter: refreshAfter,
	}
}

func (s *service) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

func (s *service) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *service) ShouldRefresh(claims *SessionClaims) bool {
	if claims == nil || claims.IssuedAt == nil {
		return false
	}
	return time.Since(claims.IssuedAt.Time) >= s.refreshAfter
}
