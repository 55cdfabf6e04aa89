package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
)

func TestTokenRoundTripProducesActor(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	userID := id.New()

	token, expiresAt, err := svc.GenerateAccessToken(userID, actor.RoleStorekeeper, "Dana")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	a, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, a.UserID())
	assert.Equal(t, actor.RoleStorekeeper, a.Role())
	assert.Equal(t, "Dana", a.Name())
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	token, _, err := svc.GenerateAccessToken(id.New(), actor.RoleManager, "")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other"))
		_, err := other.ValidateToken(token)
		assert.Equal(t, apperror.CodeUnauthenticated, apperror.Code(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.Issuer = "someone-else"
		_, err := NewJWTService(cfg).ValidateToken(token)
		assert.Equal(t, apperror.CodeUnauthenticated, apperror.Code(err))
	})

	t.Run("expired", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.AccessTokenTTL = -time.Minute
		expired := &JWTService{config: cfg}
		old, _, err := expired.GenerateAccessToken(id.New(), actor.RoleManager, "")
		require.NoError(t, err)
		_, err = svc.ValidateToken(old)
		assert.Equal(t, apperror.CodeUnauthenticated, apperror.Code(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestSystemRoleCannotBeIssued(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	_, _, err := svc.GenerateAccessToken(id.New(), actor.RoleSystem, "")
	assert.True(t, apperror.IsValidation(err))
}
