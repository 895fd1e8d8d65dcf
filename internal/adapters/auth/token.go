package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clubevents/internal/domain"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTSessions issues and verifies HS256 session tokens. The token expiry is
// the session validity window: verification fails once it has elapsed.
type JWTSessions struct {
	secret []byte
}

// NewJWTSessions returns a session token issuer/verifier signing with the given secret.
func NewJWTSessions(secret string) *JWTSessions {
	return &JWTSessions{secret: []byte(secret)}
}

// Issue implements domain.TokenIssuer.
func (s *JWTSessions) Issue(userID string, role domain.Role, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Role: role.Code(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify implements domain.TokenVerifier.
func (s *JWTSessions) Verify(tokenString string) (string, domain.Role, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", domain.RoleUser, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", domain.RoleUser, fmt.Errorf("invalid token")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return "", domain.RoleUser, fmt.Errorf("invalid token role: %w", err)
	}
	return claims.Subject, role, nil
}
