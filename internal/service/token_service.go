package service

import (
	"errors"
	"fmt"
	"time"

	"goldpayments/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// unlockScope marks tokens minted by a successful biometric scan.
const unlockScope = "vault:unlocked"

var errNotUnlockToken = errors.New("token not issued by an unlock")

// sessionClaims binds a token to one unlocked session.
type sessionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 session tokens.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

// NewJWTTokenService creates a token service. Tokens expire ttl after the
// unlock and are only accepted from the same issuer.
func NewJWTTokenService(secret string, ttl time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// Generate signs a token for an unlocked session and returns its expiry.
func (s *JWTTokenService) Generate(sessionID uuid.UUID) (string, time.Time, error) {
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := sessionClaims{
		Scope: unlockScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sessionID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer, expiry and scope, and returns the
// session the token unlocks.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parsing session token: %w", err)
	}

	if claims.Scope != unlockScope {
		return nil, errNotUnlockToken
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("session token subject: %w", err)
	}
	return &ports.TokenClaims{SessionID: sessionID}, nil
}
