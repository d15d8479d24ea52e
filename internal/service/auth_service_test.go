package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Minute, Issuer: "trs-ewc-import"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()
	token, expiresAt, err := svc.IssueToken(models.OperatorInfo{ID: "op-1", Email: "ops@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "trs-ewc-import", claims.Issuer)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other"})
	token, _, err := other.IssueToken(models.OperatorInfo{ID: "op-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = newTestAuthService().ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsExpiredAndUnsignedTokens(t *testing.T) {
	svc := newTestAuthService()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "op-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "op-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err)
}
