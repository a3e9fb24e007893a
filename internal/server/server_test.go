package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aevon-lab/hookline/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := New(":0", fakePinger{}, Options{})
		rec := get(t, s, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "healthy", body["status"])
	})

	t.Run("database unreachable", func(t *testing.T) {
		s := New(":0", fakePinger{err: errors.New("connection refused")}, Options{})
		rec := get(t, s, "/health")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Run("mounted when metrics configured", func(t *testing.T) {
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		m.IncAuthDenial("bad_signature")

		s := New(":0", fakePinger{}, Options{Metrics: m})
		rec := get(t, s, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "hookline_auth_denials_total")
	})

	t.Run("absent without metrics", func(t *testing.T) {
		s := New(":0", fakePinger{}, Options{})
		rec := get(t, s, "/metrics")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPanicReturnsGenericError(t *testing.T) {
	s := New(":0", fakePinger{}, Options{})
	s.Engine.GET("/boom", func(*gin.Context) {
		panic("secret detail")
	})

	rec := get(t, s, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Internal error"}`, rec.Body.String())
	require.False(t, strings.Contains(rec.Body.String(), "secret detail"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(addr, fakePinger{}, Options{ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
