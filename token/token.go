package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrDecode = errors.New("malformed token")

// Claims is the payload layout issued by the scheduling backend.
type Claims struct {
	UserID   *int64 `json:"user_id,omitempty"`
	AccLevel int    `json:"acc_level"`
	jwt.RegisteredClaims
}

type Payload struct {
	Subject     string
	UserID      int64
	HasUserID   bool
	AccessLevel int
	ExpiresAt   time.Time
}

// Expired reports whether the token is no longer usable at now. A payload
// without an expiry is treated as expired.
func (p Payload) Expired(now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return true
	}

	return now.Unix() >= p.ExpiresAt.Unix()
}

// Decode reads the payload segment of a compact token. The header and the
// signature are not looked at; the issuing server is the trust boundary.
func Decode(raw string) (Payload, error) {
	parts := strings.Split(raw, ".")

	if len(parts) != 3 {
		return Payload{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrDecode, len(parts))
	}

	segment, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])

	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	claims := Claims{}

	if err := json.Unmarshal(segment, &claims); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return claims.payload(), nil
}

// Verify parses raw and checks its HS256 signature and expiry against secret.
func Verify(secret, raw string) (Payload, error) {
	claims := Claims{}

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		return Payload{}, fmt.Errorf("failed to verify token: %w", err)
	}

	return claims.payload(), nil
}

// Issue signs p with HS256.
func Issue(secret string, p Payload) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret cannot be empty")
	}

	claims := Claims{
		AccLevel: p.AccessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	if p.HasUserID {
		id := p.UserID
		claims.UserID = &id
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))

	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (c Claims) payload() Payload {
	p := Payload{
		Subject:     c.Subject,
		AccessLevel: c.AccLevel,
	}

	if c.UserID != nil {
		p.UserID = *c.UserID
		p.HasUserID = true
	}

	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}

	return p
}
