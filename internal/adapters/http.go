// Package adapters holds the outbound collaborators: generation providers, news and market feeds,
// supplier availability checks and mail delivery.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

// maxErrorBody caps how much of a failed response body is kept in an error.
const maxErrorBody = 512

// NewPool builds the pooled, circuit-broken client an adapter talks through.
func NewPool(name string, maxActive int) *resilience.ConnectionPool {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
	})
	return resilience.NewConnectionPool(maxActive, maxActive, 90*time.Second, cb)
}

// transportError classifies a failure that happened before a response arrived. Errors that are
// already AppErrors (an open circuit breaker) pass through untouched, as does caller cancellation.
func transportError(api string, err error) error {
	appErr := errors.ToAppError(err)
	switch appErr.Category {
	case errors.CategoryTimeout, errors.CategoryNetwork, errors.CategoryExternalAPI, errors.CategoryCanceled:
		return appErr
	}
	// Unclassified transport failures are treated as connection problems.
	return errors.NewNetworkError(fmt.Sprintf("%s request failed", api), err)
}

// statusError turns a non-2xx response into a non-retryable external_api error.
func statusError(api string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.NewExternalAPIError(api, resp.StatusCode,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
}

// postJSON sends payload to url and decodes a 2xx JSON response into out.
func postJSON(ctx context.Context, pool *resilience.ConnectionPool, logger *monitoring.Logger, api, url string,
	headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewInternalError("failed to encode request", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	start := time.Now()
	resp, err := pool.DoRequest(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		logger.ExternalAPILogger(api, http.MethodPost, url, 0, time.Since(start), false)
		pool.Record(false)
		return transportError(api, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	logger.ExternalAPILogger(api, http.MethodPost, url, resp.StatusCode, time.Since(start), ok)
	if !ok {
		pool.Record(false)
		return statusError(api, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		pool.Record(false)
		// A body cut off by the deadline still counts as a timeout.
		switch ctx.Err() {
		case context.Canceled:
			return errors.NewCanceledError(fmt.Sprintf("%s response abandoned", api), ctx.Err())
		case context.DeadlineExceeded:
			return errors.NewTimeoutError(fmt.Sprintf("%s response interrupted", api), ctx.Err())
		}
		return errors.NewExternalAPIError(api, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	pool.Record(true)
	return nil
}

// getBody fetches url and returns the status and up to limit bytes of body. Server errors count
// as failed calls; other statuses are for the caller to interpret.
func getBody(ctx context.Context, pool *resilience.ConnectionPool, url string, headers map[string]string, limit int64) (int, []byte, error) {
	resp, err := pool.DoRequest(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		pool.Record(false)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	pool.Record(err == nil && resp.StatusCode < http.StatusInternalServerError)
	return resp.StatusCode, body, err
}
