package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported signing algorithms.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmEdDSA = "EdDSA"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrAlgorithm    = errors.New("jwtx: unsupported algorithm")
)

// Codec turns claims into compact signed tokens and back again.
//
// Decode checks structure, signature and issuer only. It deliberately leaves
// exp alone so callers decide what "expired" means against their own clock;
// use Claims.Expired for that.
type Codec interface {
	Alg() string
	Encode(Claims) (string, error)
	Decode(token string) (Claims, error)
}

// CodecOptions selects and configures the process-wide signing key.
type CodecOptions struct {
	// Algorithm is HS256 or EdDSA.
	Algorithm string

	// Issuer is enforced on decode when set. Claims carry their own iss.
	Issuer string

	// Secret is the shared HMAC key (HS256 only). At least 32 bytes.
	Secret []byte

	// PrivateKeyPEM is a PKCS8 Ed25519 private key (EdDSA only).
	PrivateKeyPEM []byte

	// KID is written into the token header (EdDSA only).
	KID string
}

// NewCodec builds the codec described by opts.
func NewCodec(opts CodecOptions) (Codec, error) {
	switch opts.Algorithm {
	case AlgorithmHS256, "":
		return NewCodecHS256(opts.Secret, opts.Issuer)
	case AlgorithmEdDSA:
		return NewCodecEdDSA(opts.KID, opts.PrivateKeyPEM, opts.Issuer)
	default:
		return nil, fmt.Errorf("%w: %q", ErrAlgorithm, opts.Algorithm)
	}
}

// parse runs the shared decode path for every algorithm: pin the method,
// skip the library's time checks, then map the library errors onto ours.
func parse(tokenStr, alg, issuer string, key jwt.Keyfunc) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithoutClaimsValidation(),
		// Reject non-zero padding bits so every bit of the string counts.
		jwt.WithStrictDecoding(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, key)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		// Wrong key, wrong algorithm, alg=none. All of it is a forged token.
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(issuer); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
