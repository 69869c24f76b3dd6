package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreatePepper reads the pepper stored at path, creating the file with
// a fresh random value the first time. An empty path means no pepper.
func LoadOrCreatePepper(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: pepper dir: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		p := strings.TrimSpace(string(b))
		if p == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return p, nil

	case errors.Is(err, os.ErrNotExist):
		p, err := GenerateToken(TokenSize256)
		if err != nil {
			return "", err
		}

		if err := os.WriteFile(path, []byte(p), 0o600); err != nil {
			return "", fmt.Errorf("cryptox: write pepper: %w", err)
		}
		return p, nil

	default:
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}
}
