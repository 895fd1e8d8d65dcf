package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clubevents/internal/domain"
)

type registrationClaims struct {
	jwt.RegisteredClaims
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	FamilyName string `json:"family_name"`
}

// RegistrationCodec carries the pending registration in a signed token so no
// database row exists until the email link is confirmed.
type RegistrationCodec struct {
	secret   []byte
	validity time.Duration
}

// NewRegistrationCodec returns a codec signing registration confirmation
// tokens valid for the given duration.
func NewRegistrationCodec(secret string, validity time.Duration) *RegistrationCodec {
	return &RegistrationCodec{secret: []byte(secret), validity: validity}
}

// Encode implements domain.RegistrationTokenCodec.
func (c *RegistrationCodec) Encode(reg *domain.PendingRegistration) (string, error) {
	claims := registrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(reg.RequestedAt),
			ExpiresAt: jwt.NewNumericDate(reg.RequestedAt.Add(c.validity)),
		},
		Username:   reg.Username,
		Email:      reg.Email,
		FirstName:  reg.FirstName,
		FamilyName: reg.FamilyName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign registration token: %w", err)
	}
	return tokenString, nil
}

// Decode implements domain.RegistrationTokenCodec. Expired or tampered
// tokens fail verification.
func (c *RegistrationCodec) Decode(tokenString string) (*domain.PendingRegistration, error) {
	claims := &registrationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid registration token: %w", err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, fmt.Errorf("invalid registration token")
	}
	reg := &domain.PendingRegistration{
		Username:   claims.Username,
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		FamilyName: claims.FamilyName,
	}
	if claims.IssuedAt != nil {
		reg.RequestedAt = claims.IssuedAt.Time
	}
	return reg, nil
}
