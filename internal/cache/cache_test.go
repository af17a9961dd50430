package cache

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
)

func TestCacheExpiry(t *testing.T) {
	c := New[string](time.Minute, 0)
	defer c.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 1, stats["expired_items"])

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 0, c.Size())
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute, 0)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
	c.Close()
	c.Close()
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("bom"), Key("bom"))
	assert.NotEqual(t, Key("bom"), Key("kpi"))
	assert.Len(t, Key(""), 32)
}

func TestMiddlewareCachesSuccessfulPosts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := New[[]byte](time.Minute, 0)
	defer c.Close()
	metrics := monitoring.NewMetrics()

	calls := 0
	r := gin.New()
	r.Use(Middleware(c, metrics, "/risk-score"))
	r.POST("/risk-score", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.POST("/other", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		r.ServeHTTP(w, req)
		return w
	}

	first := post("/risk-score", `{"bom":"a"}`)
	second := post("/risk-score", `{"bom":"a"}`)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	post("/risk-score", `{"bom":"b"}`)
	assert.Equal(t, 2, calls)

	post("/other", `{"bom":"a"}`)
	post("/other", `{"bom":"a"}`)
	assert.Equal(t, 4, calls)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(2), stats["cache_misses"])
}
