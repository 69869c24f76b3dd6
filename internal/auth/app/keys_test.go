package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, codec jwtx.Codec) {
	t.Helper()

	claims := jwtx.NewAccessClaims("alice", "USER", time.Minute, "tokengate", time.Now())
	token, err := codec.Encode(claims)
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, claims.ID, decoded.ID)
}

func TestInitCodecHS256(t *testing.T) {
	cfg := Config{Algorithm: jwtx.AlgorithmHS256, Issuer: "tokengate", Secret: "0123456789abcdef0123456789abcdef"}

	codec, err := InitCodec(cfg, slogx.Discard())
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmHS256, codec.Alg())
	roundTrip(t, codec)
}

func TestInitCodecHS256GeneratesSecret(t *testing.T) {
	cfg := Config{Algorithm: jwtx.AlgorithmHS256, Issuer: "tokengate"}

	a, err := InitCodec(cfg, slogx.Discard())
	require.NoError(t, err)
	b, err := InitCodec(cfg, slogx.Discard())
	require.NoError(t, err)

	token, err := a.Encode(jwtx.NewAccessClaims("alice", "USER", time.Minute, "tokengate", time.Now()))
	require.NoError(t, err)

	_, err = b.Decode(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig, "each process gets its own secret")
}

func TestInitCodecEdDSAPersistsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")
	cfg := Config{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "tokengate", SigningKeyFile: path}

	first, err := InitCodec(cfg, slogx.Discard())
	require.NoError(t, err)
	require.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := first.Encode(jwtx.NewAccessClaims("alice", "USER", time.Minute, "tokengate", time.Now()))
	require.NoError(t, err)

	// A restart reads the same key back.
	second, err := InitCodec(cfg, slogx.Discard())
	require.NoError(t, err)
	_, err = second.Decode(token)
	require.NoError(t, err)
}

func TestInitCodecRejectsUnknownAlgorithm(t *testing.T) {
	_, err := InitCodec(Config{Algorithm: "RS256"}, slogx.Discard())
	require.ErrorIs(t, err, jwtx.ErrAlgorithm)
}

func TestInitCodecRejectsShortSecret(t *testing.T) {
	_, err := InitCodec(Config{Algorithm: jwtx.AlgorithmHS256, Secret: "short"}, slogx.Discard())
	require.Error(t, err)
}
