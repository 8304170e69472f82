package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := slogx.New(slogx.Config{
		Service: "auth",
		Version: "test",
		Env:     "prod",
		Level:   "warn",
		Output:  &buf,
	})

	log.Info("dropped")
	log.Warn("kept", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, "auth", rec["service"])
	require.Equal(t, "v", rec["k"])
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var reqID string
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = slogx.RequestID(r.Context())
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(slogx.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-123", reqID)
	require.Equal(t, "req-123", rec.Header().Get(slogx.RequestIDHeader))
	require.Contains(t, buf.String(), `"req_id":"req-123"`)
	require.Contains(t, buf.String(), `"status":418`)
}

func TestHTTPMiddlewareGeneratesRequestID(t *testing.T) {
	h := slogx.HTTPMiddleware(slogx.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Header().Get(slogx.RequestIDHeader), 26)
}

func TestFromContextDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, slog.Default(), slogx.FromContext(req.Context()))
}

func TestNewRedactsSensitiveAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := slogx.New(slogx.Config{Service: "auth", Level: "debug", Output: &buf})

	log.Info("login", "email", "jane@example.com", "password", "Secret123!", "refresh_token", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "jane@example.com", rec["email"])
	require.Equal(t, "[REDACTED]", rec["password"])
	require.Equal(t, "[REDACTED]", rec["refresh_token"])
	require.NotContains(t, buf.String(), "Secret123!")
}

func TestWithUserID(t *testing.T) {
	var buf bytes.Buffer
	ctx := slogx.WithContext(t.Context(), slog.New(slog.NewJSONHandler(&buf, nil)))

	slogx.FromContext(slogx.WithUserID(ctx, "01HUSER")).Info("hello")
	require.Contains(t, buf.String(), `"user_id":"01HUSER"`)

	require.Equal(t, ctx, slogx.WithUserID(ctx, ""))
}
