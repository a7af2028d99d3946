// Package state issues and verifies the signed OAuth state parameter that
// binds an outbound authorization redirect to its inbound callback. The
// token is a short-lived HS256 JWT carrying a random nonce; the nonce is
// also kept server-side in the session and consumed on verification, making
// each state single-use.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when a state token is expired, tampered with
// or does not match the pending nonce
var ErrInvalidState = errors.New("invalid state parameter")

// DefaultTTL bounds how long a login redirect may stay outstanding
const DefaultTTL = 5 * time.Minute

// Signer issues and verifies signed state tokens
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner creates a state signer with the given signing key
func NewSigner(key []byte) *Signer {
	return &Signer{
		key: key,
		ttl: DefaultTTL,
		now: time.Now,
	}
}

// Issue returns a signed state token and the nonce embedded in it. The
// caller stores the nonce in the session and sends the token to the
// provider.
func (s *Signer) Issue() (token, nonce string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	claims := jwt.MapClaims{
		"nonce": nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}

	return token, nonce, nil
}

// Verify checks the token signature and expiry and that its nonce matches
// the one stored in the session when the redirect went out
func (s *Signer) Verify(token, nonce string) error {
	if token == "" || nonce == "" {
		return ErrInvalidState
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidState
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidState
	}

	got, _ := claims["nonce"].(string)
	if got == "" || got != nonce {
		return ErrInvalidState
	}

	return nil
}
