package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// RoleClaims is the signed capability that carries the session role.
type RoleClaims struct {
	Role      models.SessionRole `json:"role"`
	Nonce     string             `json:"nonce"`
	SessionID string             `json:"sid"`
	jwt.RegisteredClaims
}

type RoleTokenSigner struct {
	secret []byte
}

func NewRoleTokenSigner(secret string) (*RoleTokenSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("role token secret must be at least 16 bytes")
	}
	return &RoleTokenSigner{secret: []byte(secret)}, nil
}

// Sign issues a token binding role to the session. Every token gets a fresh nonce.
func (s *RoleTokenSigner) Sign(sessionID, admin string, role models.SessionRole, now time.Time) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("%w: cannot sign role %q", ErrValidationFailed, role)
	}
	claims := RoleClaims{
		Role:      role,
		Nonce:     uuid.NewString(),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  admin,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign role token: %w", err)
	}
	return signed, nil
}

// Verify recomputes the MAC and rejects unknown algorithms and role values.
func (s *RoleTokenSigner) Verify(tokenString string) (*RoleClaims, error) {
	claims := &RoleClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrSessionTampered, err)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unrecognized role %q", ErrSessionTampered, claims.Role)
	}
	if claims.SessionID == "" || claims.Nonce == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrSessionTampered)
	}
	return claims, nil
}
