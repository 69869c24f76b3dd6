package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// Authenticator plugs the token service into httpx.AuthGate. Outages are
// reported as httpx.ErrUnavailable so the gate fails closed; every other
// failure leaves the request anonymous.
type Authenticator struct {
	Tokens *service.TokenService
}

var _ httpx.Authenticator = Authenticator{}

func (a Authenticator) Authenticate(ctx context.Context, bearer string) (httpx.Principal, error) {
	id, err := a.Tokens.ResolveIdentity(ctx, bearer)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
		}
		return nil, err
	}
	return id, nil
}
