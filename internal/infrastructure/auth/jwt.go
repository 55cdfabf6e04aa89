// Package auth turns bearer tokens into actors.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "buildledger",
		AccessTokenTTL: 12 * time.Hour,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
}

// JWTService signs and validates access tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	if config.Issuer == "" {
		config.Issuer = "buildledger"
	}
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = 12 * time.Hour
	}
	return &JWTService{config: config}
}

// GenerateAccessToken signs a token for the given identity.
func (s *JWTService) GenerateAccessToken(userID id.ID, role actor.Role, name string) (string, time.Time, error) {
	if !role.Valid() || role == actor.RoleSystem {
		return "", time.Time{}, apperror.NewFieldValidation("role", "unknown role")
	}
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID.String(),
		Role:   string(role),
		Name:   name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken checks signature, issuer and expiry and returns the actor.
// Tokens can never carry the system role.
func (s *JWTService) ValidateToken(tokenString string) (actor.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return actor.Actor{}, apperror.NewUnauthenticated("invalid token").WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return actor.Actor{}, apperror.NewUnauthenticated("invalid token claims")
	}
	userID, err := id.Parse(claims.UserID)
	if err != nil {
		return actor.Actor{}, apperror.NewUnauthenticated("invalid subject")
	}
	role := actor.Role(claims.Role)
	if !role.Valid() || role == actor.RoleSystem {
		return actor.Actor{}, apperror.NewUnauthenticated("unknown role")
	}
	return actor.New(userID, role, claims.Name), nil
}
