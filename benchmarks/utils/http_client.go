package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// LoadClient drives HTTP load against a gateway instance for benchmarking.
// It tracks response classes and latency so benchmarks can report more than
// raw ns/op.
type LoadClient struct {
	baseURL string
	client  *http.Client

	// Metrics
	RequestsSent   int64
	Responses2xx   int64
	Responses4xx   int64
	Responses5xx   int64
	TransportErrs  int64
	TotalLatencyNs int64
}

// NewLoadClient creates a load client against baseURL
func NewLoadClient(baseURL string) *LoadClient {
	return &LoadClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Get performs a GET against path and returns status and body
func (lc *LoadClient) Get(ctx context.Context, path string) (int, []byte, error) {
	return lc.do(ctx, http.MethodGet, path, nil)
}

// PostJSON performs a JSON POST against path and returns status and body
func (lc *LoadClient) PostJSON(ctx context.Context, path string, payload []byte) (int, []byte, error) {
	return lc.do(ctx, http.MethodPost, path, payload)
}

func (lc *LoadClient) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, lc.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	atomic.AddInt64(&lc.RequestsSent, 1)
	start := time.Now()

	resp, err := lc.client.Do(req)
	if err != nil {
		atomic.AddInt64(&lc.TransportErrs, 1)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	atomic.AddInt64(&lc.TotalLatencyNs, time.Since(start).Nanoseconds())
	if err != nil {
		atomic.AddInt64(&lc.TransportErrs, 1)
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		atomic.AddInt64(&lc.Responses2xx, 1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&lc.Responses4xx, 1)
	case resp.StatusCode >= 500:
		atomic.AddInt64(&lc.Responses5xx, 1)
	}

	return resp.StatusCode, body, nil
}

// AverageLatency returns the mean request latency so far
func (lc *LoadClient) AverageLatency() time.Duration {
	sent := atomic.LoadInt64(&lc.RequestsSent)
	if sent == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&lc.TotalLatencyNs) / sent)
}

// GetMetrics returns current metrics for benchmark analysis
func (lc *LoadClient) GetMetrics() (sent, ok2xx, client4xx, server5xx, transportErrs int64) {
	return atomic.LoadInt64(&lc.RequestsSent),
		atomic.LoadInt64(&lc.Responses2xx),
		atomic.LoadInt64(&lc.Responses4xx),
		atomic.LoadInt64(&lc.Responses5xx),
		atomic.LoadInt64(&lc.TransportErrs)
}

// Reset clears all metrics for reuse between benchmarks
func (lc *LoadClient) Reset() {
	atomic.StoreInt64(&lc.RequestsSent, 0)
	atomic.StoreInt64(&lc.Responses2xx, 0)
	atomic.StoreInt64(&lc.Responses4xx, 0)
	atomic.StoreInt64(&lc.Responses5xx, 0)
	atomic.StoreInt64(&lc.TransportErrs, 0)
	atomic.StoreInt64(&lc.TotalLatencyNs, 0)
}
