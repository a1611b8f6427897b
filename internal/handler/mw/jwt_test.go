package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(a *Auth) http.Handler {
	return a.JWTAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(AdminFromContext(r.Context())))
	}))
}

func TestJWTAuthMiddleware(t *testing.T) {
	a := NewAuth([]byte("secret"))
	token, err := a.GenerateJWT("admin")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(a).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "admin", rec.Body.String())
			}
		})
	}
}

func TestJWTAuthMiddleware_ExpiredAndForeign(t *testing.T) {
	a := NewAuth([]byte("secret"))
	a.now = func() time.Time { return time.Now().Add(-2 * tokenTTL) }
	expired, err := a.GenerateJWT("admin")
	require.NoError(t, err)

	foreign, err := NewAuth([]byte("other")).GenerateJWT("admin")
	require.NoError(t, err)

	for _, token := range []string{expired, foreign} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected(NewAuth([]byte("secret"))).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestJWTAuthMiddleware_IssuerAndSecret(t *testing.T) {
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	raw, err := other.SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	protected(NewAuth([]byte("secret"))).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err = NewAuth(nil).GenerateJWT("admin")
	assert.Error(t, err)

	rec = httptest.NewRecorder()
	protected(NewAuth(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"errors":"jwt secret not configured"}`, rec.Body.String())
}
