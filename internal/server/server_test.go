package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poonnyworld/pbz-bots/internal/handler"
	"github.com/poonnyworld/pbz-bots/internal/handler/mw"
	"github.com/poonnyworld/pbz-bots/internal/repository"
	"github.com/poonnyworld/pbz-bots/internal/usecase"
)

func newRouter() http.Handler {
	svc := usecase.NewService(repository.NewMemoryRepo(), usecase.DefaultRules())
	h := handler.NewHandler(svc, mw.NewAuth([]byte("secret")), handler.Credentials{Username: "admin"}, zerolog.Nop())
	return NewRouter(h)
}

func TestRouterHealthz(t *testing.T) {
	ts := httptest.NewServer(newRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/api/users")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestStartHTTPServerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartHTTPServer(ctx, NewHTTPServer(addr, newRouter()), zerolog.Nop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartHTTPServerReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = StartHTTPServer(context.Background(), NewHTTPServer(ln.Addr().String(), newRouter()), zerolog.Nop())
	assert.Error(t, err)
}
