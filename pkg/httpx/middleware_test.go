package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func token(t *testing.T, perms ...string) string {
	t.Helper()
	s, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	tok, err := s.Sign(jwtx.NewAccessClaims(jwtx.Subject{
		UserID:      "user-1",
		Email:       "u@example.com",
		Permissions: perms,
	}, "test", time.Minute, time.Now()))
	require.NoError(t, err)
	return tok
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	verifier := jwtx.NewVerifierHS256(secret, "test")

	var gotSub string
	h := httpx.AuthnMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, _ = httpx.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic "+token(t))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+token(t))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token(t))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", gotSub)
	})
}

func TestRequirePermissions(t *testing.T) {
	verifier := jwtx.NewVerifierHS256(secret, "test")

	cases := []struct {
		name  string
		mw    httpx.Middleware
		perms []string
		want  int
	}{
		{"any with match", httpx.RequireAnyPermission("role:read", "role:update"), []string{"role:update"}, http.StatusOK},
		{"any without match", httpx.RequireAnyPermission("role:read"), []string{"user:read"}, http.StatusForbidden},
		{"all with match", httpx.RequirePermissions("user:read", "user:update"), []string{"user:read", "user:update"}, http.StatusOK},
		{"all partial", httpx.RequirePermissions("user:read", "user:update"), []string{"user:read"}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := httpx.Chain(okHandler, httpx.AuthnMiddleware(verifier), tc.mw)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token(t, tc.perms...))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}`))
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "a@b.com", dst.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	require.ErrorIs(t, httpx.DecodeJSON(req, &dst), httpx.ErrInvalidBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com"}{}`))
	require.ErrorIs(t, httpx.DecodeJSON(req, &dst), httpx.ErrInvalidBody)
}
