package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateToken(t *testing.T) {
	svc := NewAuthUsecase("test-secret", time.Minute)

	token, err := svc.IssueToken("ops")
	require.NoError(t, err)

	subject, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewAuthUsecase("secret-a", time.Minute).IssueToken("ops")
	require.NoError(t, err)

	_, err = NewAuthUsecase("secret-b", time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthUsecase("test-secret", -time.Minute)

	token, err := svc.IssueToken("ops")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenMalformed(t *testing.T) {
	svc := NewAuthUsecase("test-secret", time.Minute)
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
