package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// Claims is the self-contained bearer token claim set. Role is a snapshot at
// issuance; the live identity is always re-checked by the authentication
// middleware before the claims are trusted.
type Claims struct {
	SubjectID uint
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless bearer tokens.
type TokenService interface {
	Issue(identity *models.Identity) (string, Claims, error)
	Verify(raw string) (Claims, error)
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs the token service.
func NewTokenService(secret string, ttl time.Duration) TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &tokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *tokenService) Issue(identity *models.Identity) (string, Claims, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(identity.ID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, Claims{
		SubjectID: identity.ID,
		Role:      identity.Role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify performs the signature, expiry and shape checks only. Liveness
// checks against the stored identity (active, locked, password rotated after
// issuance) belong to the authentication middleware.
func (s *tokenService) Verify(raw string) (Claims, error) {
	var parsed tokenClaims
	token, err := jwt.ParseWithClaims(raw, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	subject, err := strconv.ParseUint(parsed.Subject, 10, 64)
	if err != nil || subject == 0 {
		return Claims{}, ErrTokenInvalid
	}

	role, ok := models.ParseRole(parsed.Role)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}

	if parsed.IssuedAt == nil || parsed.ExpiresAt == nil {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		SubjectID: uint(subject),
		Role:      role,
		IssuedAt:  parsed.IssuedAt.Time,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}
