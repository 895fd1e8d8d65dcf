package auth

import (
	"testing"
	"time"

	"clubevents/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTSessions_Issue(t *testing.T) {
	secret := "test-secret"
	sessions := NewJWTSessions(secret)

	token, err := sessions.Issue("user-123", domain.RoleManager, 2*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Parse and verify claims
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*sessionClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "manager", claims.Role)
}

func TestJWTSessions_Verify_roundtrip(t *testing.T) {
	sessions := NewJWTSessions("test-secret")

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleManager, domain.RoleAdmin} {
		token, err := sessions.Issue("user-123", role, 2*time.Hour)
		require.NoError(t, err)

		userID, gotRole, err := sessions.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
		assert.Equal(t, role, gotRole)
	}
}

func TestJWTSessions_Verify_wrong_secret(t *testing.T) {
	token, err := NewJWTSessions("secret-a").Issue("user-123", domain.RoleUser, 2*time.Hour)
	require.NoError(t, err)

	_, _, err = NewJWTSessions("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWTSessions_Verify_expired(t *testing.T) {
	sessions := NewJWTSessions("test-secret")
	token, err := sessions.Issue("user-123", domain.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, _, err = sessions.Verify(token)
	assert.Error(t, err)
}

func TestJWTSessions_Verify_garbage(t *testing.T) {
	sessions := NewJWTSessions("test-secret")
	_, _, err := sessions.Verify("not-a-token")
	assert.Error(t, err)
}

func TestRegistrationCodec_roundtrip(t *testing.T) {
	codec := NewRegistrationCodec("test-secret", 24*time.Hour)
	reg := &domain.PendingRegistration{
		Username:    "jdoe",
		Email:       "jdoe@example.com",
		FirstName:   "Jane",
		FamilyName:  "Doe",
		RequestedAt: time.Now().UTC().Truncate(time.Second),
	}

	token, err := codec.Encode(reg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, reg.Username, got.Username)
	assert.Equal(t, reg.Email, got.Email)
	assert.Equal(t, reg.FirstName, got.FirstName)
	assert.Equal(t, reg.FamilyName, got.FamilyName)
	assert.True(t, reg.RequestedAt.Equal(got.RequestedAt))
}

func TestRegistrationCodec_expired(t *testing.T) {
	codec := NewRegistrationCodec("test-secret", 24*time.Hour)
	reg := &domain.PendingRegistration{
		Username:    "jdoe",
		Email:       "jdoe@example.com",
		RequestedAt: time.Now().Add(-25 * time.Hour),
	}

	token, err := codec.Encode(reg)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.Error(t, err)
}

func TestRegistrationCodec_wrong_secret(t *testing.T) {
	reg := &domain.PendingRegistration{Username: "jdoe", RequestedAt: time.Now()}
	token, err := NewRegistrationCodec("secret-a", time.Hour).Encode(reg)
	require.NoError(t, err)

	_, err = NewRegistrationCodec("secret-b", time.Hour).Decode(token)
	assert.Error(t, err)
}
