// Package security holds request hygiene middleware and input validation for the API.
package security

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxPartNumberLength int           `json:"max_part_number_length"`
	MaxTextLength       int           `json:"max_text_length"`
	MaxBodyBytes        int64         `json:"max_body_bytes"`
	RequestTimeout      time.Duration `json:"request_timeout"`
	EnableHSTS          bool          `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxPartNumberLength: 64,
		MaxTextLength:       20000,
		MaxBodyBytes:        8 << 20,
		RequestTimeout:      30 * time.Second,
	}
}

// SecurityMiddleware provides request hygiene middleware
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

var (
	partNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._/#+,()\-]*$`)
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern      = regexp.MustCompile(`[ \t]+`)
)

// ValidatePartNumber checks a manufacturer part number
func (sm *SecurityMiddleware) ValidatePartNumber(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return apperrors.NewValidationError("partNumber is required")
	}
	if err := sm.checkText("partNumber", input, sm.config.MaxPartNumberLength); err != nil {
		return err
	}
	if !partNumberPattern.MatchString(input) {
		return apperrors.NewValidationError("partNumber contains unsupported characters", input)
	}
	return nil
}

// ValidateText checks free text such as scenario descriptions
func (sm *SecurityMiddleware) ValidateText(field, input string) error {
	return sm.checkText(field, input, sm.config.MaxTextLength)
}

func (sm *SecurityMiddleware) checkText(field, input string, limit int) error {
	if limit > 0 && len(input) > limit {
		return apperrors.NewValidationError(field+" exceeds maximum length of "+strconv.Itoa(limit)+" characters")
	}
	if strings.Contains(input, "\x00") {
		return apperrors.NewValidationError(field + " contains invalid characters")
	}
	if !utf8.ValidString(input) {
		return apperrors.NewValidationError(field + " contains invalid UTF-8 encoding")
	}
	return nil
}

// SanitizeInput strips markup from text that ends up inside prompts and rendered HTML
func (sm *SecurityMiddleware) SanitizeInput(input string) string {
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = spacePattern.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateContentType rejects bodies that are not JSON or form data
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if contentType == "" || c.Request.Method == http.MethodGet {
		c.Next()
		return
	}

	for _, allowed := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if strings.Contains(contentType, allowed) {
			c.Next()
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
		"error": "unsupported content type",
	})
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds handlers that make no generation calls
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}
