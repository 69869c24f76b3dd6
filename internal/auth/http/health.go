package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tokengate/pkg/authsdk"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
)

// Pinger is anything /readyz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	StartTime   time.Time
	Version     string
	Database    Pinger
	Revocations Pinger
}

func (h *HealthHandler) response(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.StartTime).String(),
		Version: h.Version,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness Probe
//	@Description	Returns 200 while the process is serving, whatever the state of its dependencies
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok"))
}

// HandleReadyz godoc
//
//	@Summary		Readiness Probe
//	@Description	Probes the user database and the revocation store.
//	@Description	Token validation fails closed while the revocation store is down, so it counts.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"one or more checks failed"
//	@Router			/readyz [get].
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := &authsdk.HealthChecks{
		Database:   probe(r.Context(), h.Database),
		Revocation: probe(r.Context(), h.Revocations),
	}

	status, code := "ok", http.StatusOK
	if checks.Database != "ok" || checks.Revocation != "ok" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	resp := h.response(status)
	resp.Checks = checks
	httpx.WriteJSON(w, code, resp)
}

func probe(ctx context.Context, p Pinger) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
