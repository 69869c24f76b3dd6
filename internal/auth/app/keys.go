package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
)

// InitCodec builds the process-wide token codec for the configured algorithm.
//
// Supported algorithms:
//   - "HS256": shared secret from AUTH_SECRET. When unset a random secret is
//     generated and every token dies with the process.
//   - "EdDSA": Ed25519 key read from AUTH_SIGNING_KEY_FILE, created there on
//     first start. Without a file the key is ephemeral.
func InitCodec(cfg Config, logger *slog.Logger) (jwtx.Codec, error) {
	opts := jwtx.CodecOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
	}

	switch cfg.Algorithm {
	case jwtx.AlgorithmHS256, "":
		secret := []byte(cfg.Secret)
		if len(secret) == 0 {
			generated, err := cryptox.GenerateSecret(32)
			if err != nil {
				return nil, err
			}
			secret = generated
			logger.Warn("AUTH_SECRET not set, using an ephemeral signing secret")
		}
		opts.Secret = secret

	case jwtx.AlgorithmEdDSA:
		pemBytes, err := loadOrCreateSigningKey(cfg.SigningKeyFile)
		if err != nil {
			return nil, err
		}
		if cfg.SigningKeyFile == "" {
			logger.Warn("AUTH_SIGNING_KEY_FILE not set, using an ephemeral signing key")
		}
		key, err := cryptox.ParseEd25519Key(pemBytes)
		if err != nil {
			return nil, err
		}
		opts.PrivateKeyPEM = pemBytes
		opts.KID = cryptox.Ed25519KeyID(key)

	default:
		return nil, fmt.Errorf("%w: %q", jwtx.ErrAlgorithm, cfg.Algorithm)
	}

	codec, err := jwtx.NewCodec(opts)
	if err != nil {
		return nil, err
	}

	logger.Info("token codec ready", "algorithm", codec.Alg(), "issuer", cfg.Issuer)
	return codec, nil
}

func loadOrCreateSigningKey(path string) ([]byte, error) {
	if path == "" {
		return cryptox.GenerateEd25519Key()
	}

	path = filepath.Clean(path)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	b, err = cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("signing key dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, fmt.Errorf("write signing key: %w", err)
	}
	return b, nil
}
