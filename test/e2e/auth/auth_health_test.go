//go:build e2e

package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies the readiness check covers the database and
// the in-memory revocation store.
func TestReadyzEndpoint(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
}
