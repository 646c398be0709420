package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired          = errors.New("registration token expired")
	ErrInvalidSignature = errors.New("registration token signature invalid")
	ErrMalformed        = errors.New("registration token malformed")
)

// Claims carried inside a registration token. The nonce makes every
// issued token unique even for repeated requests by the same subject.
type Claims struct {
	SubjectID string `json:"uid"`
	Nonce     string `json:"nonce"`
	jwt.RegisteredClaims
}

// Codec signs and parses registration approval tokens (HS256).
// Expiry is embedded in the token itself, so verification does not
// depend on any ledger state.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subjectID with the given nonce. It returns
// the signed string and the absolute expiry instant (UTC), which the
// caller persists alongside the ledger row so the cooldown message
// and the token agree on the same deadline.
func (c *Codec) Issue(subjectID, nonce string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := Claims{
		SubjectID: subjectID,
		Nonce:     nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies signature and embedded expiry and returns the claims.
func (c *Codec) Parse(signed string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}
