package http

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

// Pinger is a dependency /readyz reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const readinessTimeout = 2 * time.Second

func health(status string, startTime time.Time, version string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Version: version,
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Answers 200 while the process is serving. Dependencies are not checked.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, health("ok", startTime, version))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the database and, when configured, Redis and blob storage. All checks run concurrently under one deadline.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"every check ok"
//	@Failure		503	{object}	authsdk.HealthResponse	"at least one check failed"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		errs := make([]error, len(names))
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Go(func() { errs[i] = checks[name].Ping(ctx) })
		}
		wg.Wait()

		resp := health("ok", startTime, version)
		resp.Checks = make(map[string]string, len(names))
		code := http.StatusOK
		for i, name := range names {
			if errs[i] != nil {
				resp.Checks[name] = "error: " + errs[i].Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httpx.WriteJSON(w, code, resp)
	}
}
