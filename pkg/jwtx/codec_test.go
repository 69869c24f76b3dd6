package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "tokengate-test"

var exampleSecret = []byte("0123456789abcdef0123456789abcdef")

func newCodecs(t *testing.T) map[string]jwtx.Codec {
	t.Helper()

	hs, err := jwtx.NewCodec(jwtx.CodecOptions{
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    exampleIssuer,
		Secret:    exampleSecret,
	})
	require.NoError(t, err)

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	ed, err := jwtx.NewCodec(jwtx.CodecOptions{
		Algorithm:     jwtx.AlgorithmEdDSA,
		Issuer:        exampleIssuer,
		PrivateKeyPEM: pemKey,
		KID:           "test-key-eddsa",
	})
	require.NoError(t, err)

	return map[string]jwtx.Codec{"HS256": hs, "EdDSA": ed}
}

func TestCodecRoundTrip(t *testing.T) {
	for name, codec := range newCodecs(t) {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, name, codec.Alg())

			now := time.Now().UTC().Truncate(time.Second)
			claims := jwtx.NewAccessClaims("alice", "ADMIN", 5*time.Minute, exampleIssuer, now)

			token, err := codec.Encode(claims)
			require.NoError(t, err)
			require.Len(t, strings.Split(token, "."), 3)

			got, err := codec.Decode(token)
			require.NoError(t, err)
			require.Equal(t, claims.Subject, got.Subject)
			require.Equal(t, claims.ID, got.ID)
			require.Equal(t, claims.Role, got.Role)
			require.Equal(t, claims.Kind, got.Kind)
			require.Equal(t, claims.IssuedAt.Unix(), got.IssuedAt.Unix())
			require.Equal(t, claims.ExpiresAt.Unix(), got.ExpiresAt.Unix())
		})
	}
}

func TestCodecDoesNotCheckExpiry(t *testing.T) {
	for name, codec := range newCodecs(t) {
		t.Run(name, func(t *testing.T) {
			past := time.Now().Add(-48 * time.Hour)
			token, err := codec.Encode(jwtx.NewRefreshClaims("alice", time.Hour, exampleIssuer, past))
			require.NoError(t, err)

			got, err := codec.Decode(token)
			require.NoError(t, err)
			require.True(t, got.Expired(time.Now()))
		})
	}
}

func TestCodecRejectsTampering(t *testing.T) {
	for name, codec := range newCodecs(t) {
		t.Run(name, func(t *testing.T) {
			token, err := codec.Encode(jwtx.NewAccessClaims("alice", "USER", time.Minute, exampleIssuer, time.Now()))
			require.NoError(t, err)

			// Flip one bit in every byte position of the payload and the
			// signature, each mutation has to be refused.
			parts := strings.Split(token, ".")
			for seg := 1; seg <= 2; seg++ {
				for i := range len(parts[seg]) {
					mut := []byte(parts[seg])
					mut[i] ^= 0x01
					forged := strings.Join([]string{
						parts[0],
						pick(seg == 1, string(mut), parts[1]),
						pick(seg == 2, string(mut), parts[2]),
					}, ".")
					if forged == token {
						continue
					}

					_, err := codec.Decode(forged)
					require.Error(t, err, "segment %d byte %d", seg, i)
				}
			}
		})
	}
}

func TestCodecRoleEscalation(t *testing.T) {
	codecs := newCodecs(t)
	hs := codecs["HS256"]

	// Re-sign a USER token as ADMIN with a different key.
	claims := jwtx.NewAccessClaims("alice", "ADMIN", time.Minute, exampleIssuer, time.Now())
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	_, err = hs.Decode(forged)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestCodecErrors(t *testing.T) {
	codecs := newCodecs(t)

	t.Run("empty", func(t *testing.T) {
		_, err := codecs["HS256"].Decode("")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := codecs["HS256"].Decode("not.a.token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("alice", "ADMIN", time.Minute, exampleIssuer, time.Now())
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codecs["HS256"].Decode(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("cross algorithm", func(t *testing.T) {
		token, err := codecs["EdDSA"].Encode(jwtx.NewAccessClaims("alice", "USER", time.Minute, exampleIssuer, time.Now()))
		require.NoError(t, err)

		_, err = codecs["HS256"].Decode(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other, err := jwtx.NewCodecHS256(exampleSecret, "other-issuer")
		require.NoError(t, err)

		token, err := other.Encode(jwtx.NewAccessClaims("alice", "USER", time.Minute, "other-issuer", time.Now()))
		require.NoError(t, err)

		_, err = codecs["HS256"].Decode(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestNewCodecValidation(t *testing.T) {
	_, err := jwtx.NewCodec(jwtx.CodecOptions{Algorithm: "RS512"})
	require.ErrorIs(t, err, jwtx.ErrAlgorithm)

	_, err = jwtx.NewCodec(jwtx.CodecOptions{Algorithm: jwtx.AlgorithmHS256, Secret: []byte("short")})
	require.Error(t, err)

	_, err = jwtx.NewCodec(jwtx.CodecOptions{Algorithm: jwtx.AlgorithmEdDSA, PrivateKeyPEM: []byte("nope")})
	require.Error(t, err)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
