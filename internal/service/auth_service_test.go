package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-sms/admissions-api/internal/models"
	appErrors "github.com/elimu-sms/admissions-api/pkg/errors"
)

func TestIssueAndValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, nil)

	token, expiresAt, err := svc.IssueToken("user-1", models.RoleOperator, []models.Capability{models.CapPaymentRecord})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleOperator, claims.Role)

	actor := claims.Actor()
	assert.True(t, actor.HasCapability(models.CapAdmissionsCreate))
	assert.True(t, actor.HasCapability(models.CapPaymentRecord), "token grant must extend role capabilities")
	assert.False(t, actor.HasCapability(models.CapPlacementDecide))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService("secret-a", time.Hour, nil)
	verifier := NewAuthService("secret-b", time.Hour, nil)

	token, _, err := issuer.IssueToken("user-1", models.RoleAdmin, nil)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, nil)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, nil)

	token, _, err := svc.IssueToken("user-1", models.UserRole("INTRUDER"), nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
