package security

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Equal(t, 64, config.MaxPartNumberLength)
	assert.Equal(t, 20000, config.MaxTextLength)
	assert.Equal(t, int64(8<<20), config.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, config.RequestTimeout)
	assert.False(t, config.EnableHSTS)
}

func TestValidatePartNumber(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	tests := []struct {
		name        string
		input       string
		expectError bool
		errorMsg    string
	}{
		{name: "microcontroller", input: "ATMEGA328P-PU"},
		{name: "with slash and hash", input: "LM317T/NOPB #2"},
		{name: "lowercase passive", input: "rc0603fr-0710kl"},
		{name: "empty", input: "  ", expectError: true, errorMsg: "partNumber is required"},
		{name: "too long", input: strings.Repeat("A", 65), expectError: true, errorMsg: "exceeds maximum length"},
		{name: "null bytes", input: "ATMEGA\x00328", expectError: true, errorMsg: "invalid characters"},
		{name: "invalid UTF-8", input: "LM\xff\xfe317", expectError: true, errorMsg: "invalid UTF-8"},
		{name: "markup", input: "<b>LM317</b>", expectError: true, errorMsg: "unsupported characters"},
		{name: "leading punctuation", input: "-LM317", expectError: true, errorMsg: "unsupported characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidatePartNumber(tt.input)
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
			assert.Equal(t, apperrors.CategoryValidation, apperrors.CategoryOf(err))
		})
	}
}

func TestValidateText(t *testing.T) {
	config := DefaultSecurityConfig()
	config.MaxTextLength = 10
	sm := NewSecurityMiddleware(config)

	assert.NoError(t, sm.ValidateText("scenario", "port strike"[:10]))
	assert.Error(t, sm.ValidateText("scenario", "port strike in asia"))
	assert.Error(t, sm.ValidateText("scenario", "a\x00b"))
}

func TestSanitizeInput(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "trim whitespace",
			input:    "  typhoon near Kaohsiung  ",
			expected: "typhoon near Kaohsiung",
		},
		{
			name:     "remove script blocks",
			input:    "<script>alert('test')</script>Port closure",
			expected: "Port closure",
		},
		{
			name:     "keep tag content",
			input:    "<b>Tariff</b> increase",
			expected: "Tariff increase",
		},
		{
			name:     "collapse spaces keep newlines",
			input:    "line   one\nline    two",
			expected: "line one\nline two",
		},
		{
			name:     "normal input unchanged",
			input:    "ATMEGA328P-PU",
			expected: "ATMEGA328P-PU",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sm.SanitizeInput(tt.input))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		hsts     bool
		path     string
		wantCSP  bool
		wantHSTS bool
	}{
		{name: "api response", path: "/health", wantCSP: true},
		{name: "swagger exempt from csp", path: "/swagger/index.html"},
		{name: "hsts enabled", hsts: true, path: "/health", wantCSP: true, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSecurityConfig()
			config.EnableHSTS = tt.hsts
			sm := NewSecurityMiddleware(config)

			r := gin.New()
			r.Use(sm.SecurityHeaders)
			r.GET("/*path", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "test"})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)

			headers := w.Header()
			assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
			assert.Equal(t, tt.wantCSP, headers.Get("Content-Security-Policy") != "")
			assert.Equal(t, tt.wantHSTS, headers.Get("Strict-Transport-Security") != "")
		})
	}
}

func TestValidateContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	r := gin.New()
	r.Use(sm.ValidateContentType)
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name           string
		contentType    string
		expectedStatus int
	}{
		{name: "valid JSON", contentType: "application/json; charset=utf-8", expectedStatus: http.StatusOK},
		{name: "valid form data", contentType: "application/x-www-form-urlencoded", expectedStatus: http.StatusOK},
		{name: "invalid content type", contentType: "text/plain", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "no content type", contentType: "", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"partNumber": "LM317"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			r.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := DefaultSecurityConfig()
	config.MaxBodyBytes = 8
	sm := NewSecurityMiddleware(config)

	r := gin.New()
	r.Use(sm.LimitBody)
	r.POST("/test", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "small body", body: "{}", status: http.StatusOK},
		{name: "oversized body", body: `{"bom": "a,b,c"}`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	config := DefaultSecurityConfig()
	config.RequestTimeout = 5 * time.Millisecond
	sm := NewSecurityMiddleware(config)

	r := gin.New()
	r.Use(sm.RequestTimeout)

	var ctxErr error
	r.GET("/test", func(c *gin.Context) {
		<-c.Request.Context().Done()
		ctxErr = c.Request.Context().Err()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)

	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
	assert.Equal(t, "0", w.Header().Get("X-Timeout"))
}
