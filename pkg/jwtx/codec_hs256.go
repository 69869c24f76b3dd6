package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretSize is the shortest HMAC key we accept (256 bits).
const MinSecretSize = 32

// HS256Codec signs and verifies with a single shared secret.
type HS256Codec struct {
	secret []byte
	issuer string
}

// NewCodecHS256 creates an HMAC-SHA256 codec. The secret is copied.
func NewCodecHS256(secret []byte, issuer string) (*HS256Codec, error) {
	if len(secret) < MinSecretSize {
		return nil, errors.New("jwtx: HS256 secret must be at least 32 bytes")
	}

	return &HS256Codec{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
	}, nil
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Encode signs the claims.
func (c *HS256Codec) Encode(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies the signature and returns the claims it was encoded with.
func (c *HS256Codec) Decode(tokenStr string) (Claims, error) {
	return parse(tokenStr, c.Alg(), c.issuer, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
}
