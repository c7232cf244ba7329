package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

type fakeStats struct {
	counts map[email.Intent]int
	err    error
}

func (f fakeStats) CountByIntent(context.Context) (map[email.Intent]int, error) {
	return f.counts, f.err
}

func TestRouter_Healthz(t *testing.T) {
	h := NewRouter(prometheus.NewRegistry(), fakeStats{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Stats(t *testing.T) {
	stats := fakeStats{counts: map[email.Intent]int{email.IntentMeetingRequest: 3, email.IntentNone: 1}}
	h := NewRouter(prometheus.NewRegistry(), stats, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{"meeting_request": 3, "none": 1}, body)
}

func TestRouter_StatsError(t *testing.T) {
	h := NewRouter(prometheus.NewRegistry(), fakeStats{err: errors.New("db locked")}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()
	h := NewRouter(reg, fakeStats{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")
}
