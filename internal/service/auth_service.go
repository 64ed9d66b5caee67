package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "converge/internal/errors"
)

// CompanionSubject is the token subject issued to paired companions.
const CompanionSubject = "companion"

// AuthService pairs companion displays with the daemon. With no passphrase
// hash configured, pairing is disabled and the API is open.
type AuthService struct {
	passphraseHash []byte
	jwtSecret      []byte
	tokenTTL       time.Duration
	now            func() time.Time
}

func NewAuthService(passphraseHash, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		passphraseHash: []byte(passphraseHash),
		jwtSecret:      []byte(jwtSecret),
		tokenTTL:       tokenTTL,
		now:            time.Now,
	}
}

type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *AuthService) Enabled() bool {
	return len(s.passphraseHash) > 0
}

func (s *AuthService) IssueToken(passphrase string) (*TokenResult, *apperrors.APIError) {
	if !s.Enabled() {
		return nil, apperrors.NotFound("pairing_disabled", "pairing is not enabled")
	}
	if passphrase == "" {
		return nil, apperrors.BadRequest("invalid_passphrase", "passphrase is required")
	}
	if bcrypt.CompareHashAndPassword(s.passphraseHash, []byte(passphrase)) != nil {
		return nil, apperrors.Unauthorized("invalid passphrase")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   CompanionSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token")
	}
	return &TokenResult{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", apperrors.Unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	return claims.Subject, nil
}
