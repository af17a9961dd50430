package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementFallback()
	m.RecordGeneration("SUCCESS")
	m.RecordGeneration("SUCCESS")
	m.RecordGeneration("EXHAUSTED")
	m.RecordExternalAPIRequest("news", true)
	m.RecordExternalAPIRequest("news", false)
	m.RecordResponseTime(10 * time.Millisecond)
	m.RecordResponseTime(30 * time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, float64(50), stats["error_rate_percent"])
	assert.Equal(t, float64(50), stats["cache_hit_rate_percent"])
	assert.Equal(t, int64(1), stats["fallbacks"])
	assert.Equal(t, map[string]int64{"SUCCESS": 2, "EXHAUSTED": 1}, stats["generation_states"])

	api := m.GetExternalAPIStats()["news"].(map[string]interface{})
	assert.Equal(t, int64(2), api["requests"])
	assert.Equal(t, float64(50), api["error_rate"])

	assert.Equal(t, 30*time.Millisecond, m.GetPercentileResponseTime(100))

	m.Reset()
	assert.Equal(t, int64(0), m.GetStats()["total_requests"])
	assert.Empty(t, m.GetGenerationStats())
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestMonitoringMiddlewareCountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := NewMetrics()
	r := gin.New()
	r.Use(MonitoringMiddleware(metrics, NewLogger("error")))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })

	for _, path := range []string{"/ok", "/bad", "/bad"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(3), metrics.RequestCount)
	assert.Equal(t, int64(2), metrics.ErrorCount)
	assert.Equal(t, int64(2), metrics.GetStatusCodeDistribution()[http.StatusUnprocessableEntity])
}

func TestSuspiciousPatterns(t *testing.T) {
	assert.True(t, containsSQLInjectionPatterns("id=1 UNION SELECT password"))
	assert.False(t, containsSQLInjectionPatterns("part=STM32F103"))
	assert.True(t, containsSuspiciousUserAgent("Mozilla/5.0 sqlmap/1.7"))
	assert.False(t, containsSuspiciousUserAgent("Mozilla/5.0"))
}

func TestTraceFunctionPassesError(t *testing.T) {
	tracer := NewTracer("test")
	boom := errors.New("boom")

	err := tracer.TraceFunction(context.Background(), "stage", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = tracer.TraceFunction(context.Background(), "stage", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}
