package jwtx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// EdDSACodec signs with an Ed25519 private key and verifies with its public
// half.
type EdDSACodec struct {
	kid    string
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewCodecEdDSA loads an Ed25519 private key from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewCodecEdDSA(kid string, pemKey []byte, issuer string) (*EdDSACodec, error) {
	key, err := cryptox.ParseEd25519Key(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}

	return &EdDSACodec{
		kid:    kid,
		key:    key,
		pub:    key.Public().(ed25519.PublicKey),
		issuer: issuer,
	}, nil
}

func (c *EdDSACodec) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (c *EdDSACodec) KID() string { return c.kid }

// PublicKey exposes the verification key, e.g. for other services that only
// need to check tokens.
func (c *EdDSACodec) PublicKey() ed25519.PublicKey { return c.pub }

// Encode signs the claims and stamps the kid header.
func (c *EdDSACodec) Encode(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	if c.kid != "" {
		t.Header["kid"] = c.kid
	}
	return t.SignedString(c.key)
}

// Decode verifies the signature against our single public key. The kid
// header is informational only.
func (c *EdDSACodec) Decode(tokenStr string) (Claims, error) {
	return parse(tokenStr, c.Alg(), c.issuer, func(*jwt.Token) (any, error) {
		return c.pub, nil
	})
}
