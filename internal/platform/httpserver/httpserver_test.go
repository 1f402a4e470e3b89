package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	healthy := NewRouter(func(context.Context) error { return nil }, prometheus.NewRegistry())
	assert.Equal(t, http.StatusOK, serve(healthy, "/healthz").Code)

	down := NewRouter(func(context.Context) error { return errors.New("refused") }, prometheus.NewRegistry())
	rec := serve(down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestMetricsAndMounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "projects_test_total", Help: "test"}).Inc()

	router := NewRouter(nil, reg, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
	})

	rec := serve(router, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "projects_test_total 1"))
	assert.Equal(t, "pong", serve(router, "/ping").Body.String())
}

func TestNewSetsHeaderTimeout(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
