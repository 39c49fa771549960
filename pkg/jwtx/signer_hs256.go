package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrWrongIssuer  = errors.New("jwtx: wrong issuer")
)

// HS256Signer signs and verifies session tokens with a shared symmetric key.
// Session tokens never leave this service's trust boundary, so a symmetric
// scheme is enough; there is no third party that needs to verify them.
type HS256Signer struct {
	secret []byte
	issuer string
}

func NewHS256Signer(secret []byte, issuer string) (*HS256Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwtx: secret must be at least 32 bytes, got %d", len(secret))
	}
	return &HS256Signer{secret: secret, issuer: issuer}, nil
}

func (s *HS256Signer) Sign(claims SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, including expiry and issuer.
func (s *HS256Signer) Verify(raw string) (SessionClaims, error) {
	var claims SessionClaims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrInvalidToken
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return SessionClaims{}, ErrWrongIssuer
	}

	return claims, nil
}
