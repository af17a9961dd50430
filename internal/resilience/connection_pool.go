package resilience

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ConnectionPool shares one instrumented HTTP transport between the outbound adapters, bounds the
// number of in-flight requests and routes every call through a circuit breaker.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker

	slots    chan struct{}
	active   int64
	requests int64
	failures int64

	transport *http.Transport
	client    *http.Client

	name     string
	recorder ResultRecorder
}

// ResultRecorder receives the outcome of each call an adapter makes through the pool.
type ResultRecorder func(name string, success bool)

// NewConnectionPool creates a pool. Request deadlines come from the caller's context so long
// generation calls are not cut short by a client-wide timeout.
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	if maxActive <= 0 {
		maxActive = 32
	}
	if maxIdle <= 0 {
		maxIdle = maxActive
	}
	if cb == nil {
		cb = NewCircuitBreaker(CircuitBreakerConfig{Name: "http"})
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle / 2,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:        maxIdle,
		maxActive:      maxActive,
		idleTimeout:    idleTimeout,
		circuitBreaker: cb,
		slots:          make(chan struct{}, maxActive),
		transport:      transport,
		client: &http.Client{
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// Client exposes the shared instrumented client for SDKs that take an *http.Client.
func (cp *ConnectionPool) Client() *http.Client {
	return cp.client
}

// SetRecorder reports call outcomes under name. Call it before the pool is shared.
func (cp *ConnectionPool) SetRecorder(name string, r ResultRecorder) {
	cp.name = name
	cp.recorder = r
}

// Record reports one call outcome. The adapter decides what success means.
func (cp *ConnectionPool) Record(success bool) {
	if cp.recorder != nil {
		cp.recorder(cp.name, success)
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"active_requests":       atomic.LoadInt64(&cp.active),
		"total_requests":        atomic.LoadInt64(&cp.requests),
		"failed_requests":       atomic.LoadInt64(&cp.failures),
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State(),
	}
}

// DoRequest executes an HTTP request with circuit breaker protection. A non-2xx status is not an
// error at this level; callers inspect the response.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error) {
	select {
	case cp.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-cp.slots }()

	atomic.AddInt64(&cp.active, 1)
	defer atomic.AddInt64(&cp.active, -1)
	atomic.AddInt64(&cp.requests, 1)

	var resp *http.Response
	err := cp.circuitBreaker.Call(func() error {
		var reader *bytes.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		var req *http.Request
		var err error
		if reader != nil {
			req, err = http.NewRequestWithContext(ctx, method, url, reader)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, url, nil)
		}
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = cp.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())
		return nil
	})

	if err != nil {
		atomic.AddInt64(&cp.failures, 1)
		return nil, err
	}

	return resp, nil
}

// Close releases idle connections.
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
