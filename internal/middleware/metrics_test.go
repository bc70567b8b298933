package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"studio-backend/internal/observability"
)

func TestMetrics_CountsRequestsByStatus(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		statusCode int
	}{
		{"GET 200", http.MethodGet, "/metrics-test/ok", http.StatusOK},
		{"POST 201", http.MethodPost, "/metrics-test/created", http.StatusCreated},
		{"GET 500", http.MethodGet, "/metrics-test/error", http.StatusInternalServerError},
		{"DELETE 404", http.MethodDelete, "/metrics-test/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := observability.HTTPRequestsTotal.WithLabelValues(tt.method, tt.path, itoa(tt.statusCode))
			before := prom.ToFloat64(counter)

			handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte("test response"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "test response", w.Body.String())
			assert.Equal(t, before+1, prom.ToFloat64(counter))
		})
	}
}

func TestMetrics_DefaultStatusCodeIsOK(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/default", "200")
	before := prom.ToFloat64(counter)

	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("response"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics-test/default", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, prom.ToFloat64(counter))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test/items/{id}", "200")
	before := prom.ToFloat64(counter)

	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/metrics-test/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics-test/items/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, before+3, prom.ToFloat64(counter))
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, rw.statusCode)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestResponseWriter_HijackNotImplemented(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	conn, buf, err := rw.Hijack()

	assert.Error(t, err)
	assert.Nil(t, conn)
	assert.Nil(t, buf)
	assert.Equal(t, "responsewriter does not implement http.Hijacker", err.Error())
}

func TestResponseWriter_HijackThroughServer(t *testing.T) {
	hijacked := make(chan bool, 1)
	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hijacker, ok := w.(http.Hijacker)
		if !ok {
			hijacked <- false
			return
		}
		conn, _, err := hijacker.Hijack()
		if err == nil {
			_ = conn.Close()
		}
		hijacked <- err == nil
	}))

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err == nil {
		_ = resp.Body.Close()
	}

	assert.True(t, <-hijacked)
}
